// Package index 维护外部标识与稠密下标 [0, n) 之间的双向映射。
package index

import (
	"sync"

	"github.com/tidwall/btree"

	"github.com/rushteam/knnkit/core"
)

// Entities 是追加式的 ID <-> 下标映射：同一会话内下标稳定且唯一。
// id -> index 使用有序 B 树，IDs() 的遍历顺序因此是确定的（按 ID 字典序）。
type Entities struct {
	mu   sync.RWMutex
	ids  []string
	byID btree.Map[string, int]
}

func New() *Entities {
	return &Entities{}
}

// FromIDs 按给定顺序分配下标，重复的 ID 只保留第一次出现。
func FromIDs(ids ...string) *Entities {
	e := New()
	for _, id := range ids {
		e.Add(id)
	}
	return e
}

// Add 返回 id 的下标；不存在时追加分配。
func (e *Entities) Add(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx, ok := e.byID.Get(id); ok {
		return idx
	}
	idx := len(e.ids)
	e.ids = append(e.ids, id)
	e.byID.Set(id, idx)
	return idx
}

// Index 查找 id 的下标。
func (e *Entities) Index(id string) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.byID.Get(id)
}

// MustIndex 查找 id 的下标，未知 id 返回 -1（与 core.RecommendContext 的约定一致）。
func (e *Entities) MustIndex(id string) int {
	if idx, ok := e.Index(id); ok {
		return idx
	}
	return -1
}

// ID 返回下标对应的外部标识。
func (e *Entities) ID(idx int) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx < 0 || idx >= len(e.ids) {
		return "", core.NewDomainError(core.ModuleIndex, core.ErrorCodeNotFound, "index: unknown entity index")
	}
	return e.ids[idx], nil
}

func (e *Entities) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ids)
}

// IDs 按 ID 字典序返回 (id, index) 对。
func (e *Entities) IDs() []Pair {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Pair, 0, e.byID.Len())
	e.byID.Scan(func(id string, idx int) bool {
		out = append(out, Pair{ID: id, Index: idx})
		return true
	})
	return out
}

// Pair 是一条映射记录。
type Pair struct {
	ID    string
	Index int
}
