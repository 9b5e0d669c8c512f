package neighborhood

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rushteam/knnkit/core"
)

// 存储布局：
//
//	{prefix}:nb:meta   -> {"mode": "...", "entities": n}
//	{prefix}:nb:{idx}  -> [{"i": 3, "w": 0.5}, ...]
// 空邻居列表不落盘。

type snapshotMeta struct {
	Mode     string `json:"mode"`
	Entities int    `json:"entities"`
}

func metaKey(prefix string) string { return prefix + ":nb:meta" }

func listKey(prefix string, idx int) string { return prefix + ":nb:" + strconv.Itoa(idx) }

// Save 把缓存邻域写入 store，便于跨进程复用。
func Save(ctx context.Context, store core.Store, prefix string, c *CachedNeighborhood) error {
	if store == nil || c == nil {
		return core.NewConfigError(core.ModuleNeighborhood, "store and neighborhood are required")
	}
	kvs := make(map[string][]byte, len(c.lists)+1)
	for idx, l := range c.lists {
		if len(l) == 0 {
			continue
		}
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("encode neighbors %d: %w", idx, err)
		}
		kvs[listKey(prefix, idx)] = data
	}
	meta, err := json.Marshal(snapshotMeta{Mode: c.mode, Entities: len(c.lists)})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	kvs[metaKey(prefix)] = meta
	if err := store.BatchSet(ctx, kvs); err != nil {
		return fmt.Errorf("save neighborhood: %w", err)
	}
	return removeStale(ctx, store, prefix, kvs, len(c.lists))
}

// removeStale 删除上一份快照遗留、本次未写入的邻居列表。
// 支持前缀列举的 Store 按 key 清理，其余 Store 逐个删除本次为空的下标。
func removeStale(ctx context.Context, store core.Store, prefix string, written map[string][]byte, entities int) error {
	var stale []string
	if lister, ok := store.(core.KeyLister); ok {
		keys, err := lister.Keys(ctx, prefix+":nb:")
		if err != nil {
			return fmt.Errorf("list neighborhood keys: %w", err)
		}
		for _, k := range keys {
			if _, ok := written[k]; !ok {
				stale = append(stale, k)
			}
		}
	} else {
		for idx := 0; idx < entities; idx++ {
			if k := listKey(prefix, idx); written[k] == nil {
				stale = append(stale, k)
			}
		}
	}
	for _, k := range stale {
		if err := store.Delete(ctx, k); err != nil {
			return fmt.Errorf("remove stale %s: %w", k, err)
		}
	}
	return nil
}

// Load 从 store 读取 Save 写入的邻域快照。
func Load(ctx context.Context, store core.Store, prefix string) (*CachedNeighborhood, error) {
	if store == nil {
		return nil, core.NewConfigError(core.ModuleNeighborhood, "store is required")
	}
	raw, err := store.Get(ctx, metaKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("load neighborhood meta: %w", err)
	}
	var meta snapshotMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	keys := make([]string, meta.Entities)
	for idx := range keys {
		keys[idx] = listKey(prefix, idx)
	}
	values, err := store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load neighbors: %w", err)
	}

	lists := make([][]Neighbor, meta.Entities)
	for idx, key := range keys {
		data, ok := values[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(data, &lists[idx]); err != nil {
			return nil, fmt.Errorf("decode neighbors %d: %w", idx, err)
		}
	}
	return FromLists(meta.Mode, lists), nil
}
