package filter

import (
	"context"

	"github.com/rushteam/knnkit/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
//
// Filter 作用于 Pipeline 中已经物化的候选列表；召回内部的快速路径使用 Predicate。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// PredicateFilter 把 Predicate 适配为 Filter。
type PredicateFilter struct {
	Label     string
	Predicate Predicate
}

func (f *PredicateFilter) Name() string {
	if f.Label == "" {
		return "filter.predicate"
	}
	return f.Label
}

func (f *PredicateFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Predicate == nil {
		return false, nil
	}
	return !f.Predicate(item.Index), nil
}

// Preparer 由需要按请求加载数据的过滤器实现（例如基于 Store 的黑名单）。
// FilterNode 每次 Process 调用一次 Prepare，用返回的 Filter 判定整批候选。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}

// prepare 返回本次请求实际使用的过滤器。
func prepare(ctx context.Context, rctx *core.RecommendContext, f Filter) (Filter, error) {
	if p, ok := f.(Preparer); ok {
		return p.Prepare(ctx, rctx)
	}
	return f, nil
}
