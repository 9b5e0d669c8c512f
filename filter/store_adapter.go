package filter

import (
	"context"
	"encoding/json"

	"github.com/rushteam/knnkit/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口。
// 值统一为 JSON 编码的物品下标数组，例如 [3,7,42]。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetBlacklist 从 Store 读取黑名单。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]int, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var indices []int
	if err := json.Unmarshal(data, &indices); err != nil {
		return nil, err
	}
	return indices, nil
}

// GetUserBlocks 从 Store 读取用户拉黑列表，key 为 {keyPrefix}:{userID}。
func (a *StoreAdapter) GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]int, error) {
	return a.GetBlacklist(ctx, keyPrefix+":"+userID)
}

// PutBlacklist 写入黑名单。
func (a *StoreAdapter) PutBlacklist(ctx context.Context, key string, indices []int) error {
	data, err := json.Marshal(indices)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}
