package filter

import (
	"context"

	"github.com/rushteam/knnkit/core"
)

// SeenFilter 过滤掉查询实体已经交互过的物品（偏好行中出现的列）。
// 未知实体没有偏好行，不过滤任何物品。
type SeenFilter struct {
	Source core.PreferenceSource
}

func NewSeenFilter(src core.PreferenceSource) *SeenFilter {
	return &SeenFilter{Source: src}
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Source == nil || !rctx.Known() {
		return false, nil
	}
	return f.Source.PreferencesOf(rctx.UserIndex).Has(item.Index), nil
}
