package filter

import (
	"context"

	"github.com/rushteam/knnkit/core"
)

const defaultUserBlockPrefix = "user:block"

// UserBlockFilter 过滤当前用户拉黑的物品，拉黑列表存放在 {KeyPrefix}:{UserID}。
type UserBlockFilter struct {
	Store UserBlockStore

	// KeyPrefix 为空时使用 "user:block"
	KeyPrefix string
}

// UserBlockStore 是用户拉黑存储接口。
type UserBlockStore interface {
	GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]int, error)
}

// NewUserBlockFilter 创建一个用户拉黑过滤器，storeAdapter 可为 nil（不过滤）。
func NewUserBlockFilter(storeAdapter *StoreAdapter, keyPrefix string) *UserBlockFilter {
	f := &UserBlockFilter{KeyPrefix: keyPrefix}
	if storeAdapter != nil {
		f.Store = storeAdapter
	}
	return f
}

func (f *UserBlockFilter) Name() string {
	return "filter.user_block"
}

// Prepare 按 rctx.UserID 读取一次拉黑列表。匿名请求或没有 Store 时不过滤任何物品。
func (f *UserBlockFilter) Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error) {
	keep := &PredicateFilter{Label: f.Name()}
	if f.Store == nil || rctx == nil || rctx.UserID == "" {
		return keep, nil
	}
	prefix := f.KeyPrefix
	if prefix == "" {
		prefix = defaultUserBlockPrefix
	}
	blocked, err := f.Store.GetUserBlocks(ctx, rctx.UserID, prefix)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return keep, nil
		}
		return keep, err
	}
	keep.Predicate = NewSet(blocked...).Exclude()
	return keep, nil
}

func (f *UserBlockFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return false, nil
	}
	prepared, _ := f.Prepare(ctx, rctx)
	return prepared.ShouldFilter(ctx, rctx, item)
}
