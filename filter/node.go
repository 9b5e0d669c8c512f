package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	active := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		prepared, err := prepare(ctx, rctx, f)
		if err != nil {
			// 数据加载失败时降级为退化的判定（例如只用内存黑名单），不中断流程
			n.Logger.Warn().Err(err).Str("filter", f.Name()).Msg("filter prepare failed")
		}
		if prepared != nil {
			active = append(active, prepared)
		}
	}

	out := make([]*core.Item, 0, len(items))
	filtered := 0

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range active {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时记录但不中断流程
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Int("item", item.Index).Msg("filter failed")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered++
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}

	n.Logger.Debug().Int("in", len(items)).Int("filtered", filtered).Msg("filter node done")
	return out, nil
}
