package filter

import (
	"context"

	"github.com/rushteam/knnkit/core"
)

// BlacklistFilter 过滤黑名单中的物品下标。
// 黑名单 = 内存中的 Items ∪ Store[Key]；Store 读取失败时只使用内存部分。
type BlacklistFilter struct {
	Items *Set

	// Store 与 Key 可选
	Store BlacklistStore
	Key   string
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	GetBlacklist(ctx context.Context, key string) ([]int, error)
}

// NewBlacklistFilter 创建一个黑名单过滤器，storeAdapter 可为 nil。
func NewBlacklistFilter(indices []int, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	f := &BlacklistFilter{Items: NewSet(indices...), Key: key}
	if storeAdapter != nil {
		f.Store = storeAdapter
	}
	return f
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

// Prepare 读取一次 Store 中的黑名单，与内存黑名单合并为本次请求的判定集合。
func (f *BlacklistFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	set := f.Items.Clone()
	if f.Store != nil && f.Key != "" {
		indices, err := f.Store.GetBlacklist(ctx, f.Key)
		if err != nil && !core.IsStoreNotFound(err) {
			return &PredicateFilter{Label: f.Name(), Predicate: set.Exclude()}, err
		}
		for _, idx := range indices {
			set.Add(idx)
		}
	}
	return &PredicateFilter{Label: f.Name(), Predicate: set.Exclude()}, nil
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	prepared, _ := f.Prepare(ctx, rctx)
	return prepared.ShouldFilter(ctx, rctx, item)
}
