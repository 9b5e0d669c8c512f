package recall

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/metrics"
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/pkg/topn"
	"github.com/rushteam/knnkit/pkg/utils"
)

// Fanout 并发执行多个召回源并合并结果，典型用法是邻域推荐 + 热门兜底。
// 合并前的拼接按 Sources 顺序进行，与各源完成先后无关；单个源失败或超时只记日志。
//
// MergeStrategy：
//   - first（默认）：按下标去重，保留先出现者，合并后出现者的 labels
//   - priority：按下标去重，保留先出现者，不合并 labels
//   - score：按下标去重，保留分数最高者，整体按分数降序（同分保持拼接顺序，NaN 分数丢弃）
//   - union：不去重
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 0 表示无限制
	MergeStrategy string
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	eg := new(errgroup.Group)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			// 超时控制
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或错误时返回空结果，不中断其他召回源
				n.Logger.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				n.Metrics.SourceFailed(src.Name())
				return nil
			}

			priority := strconv.Itoa(i)
			for _, it := range items {
				if it == nil {
					continue
				}
				it.PutLabel("recall_priority", utils.Label{Value: priority, Source: "recall"})
			}
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait()

	var all []*core.Item
	for _, items := range results {
		all = append(all, items...)
	}

	switch n.MergeStrategy {
	case "priority":
		return n.mergeByPriority(all), nil
	case "score":
		return mergeByScore(all)
	case "union":
		return all, nil
	default: // "first" 或默认
		return n.mergeFirst(all), nil
	}
}

// mergeFirst 按物品下标去重，保留第一个出现的（默认策略），合并后出现者的 labels。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[int]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.Index]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.Index] = it
		out = append(out, it)
	}
	return out
}

// mergeByPriority 按优先级合并：相同下标时保留优先级更高的（索引更小），
// 不合并低优先级来源的 labels。
func (n *Fanout) mergeByPriority(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[int]struct{}, len(all))
	out := make([]*core.Item, 0, len(all))
	// all 已按 Sources 顺序排列，第一次出现即最高优先级
	for _, it := range all {
		if it == nil {
			continue
		}
		if _, ok := seen[it.Index]; ok {
			continue
		}
		seen[it.Index] = struct{}{}
		out = append(out, it)
	}
	return out
}

// mergeByScore 同一下标保留分数最高的物品，再按分数降序输出。
func mergeByScore(all []*core.Item) ([]*core.Item, error) {
	best := make(map[int]*core.Item, len(all))
	pos := make(map[*core.Item]int, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		old, ok := best[it.Index]
		if !ok {
			pos[it] = len(pos)
			best[it.Index] = it
			continue
		}
		if it.Score > old.Score {
			pos[it] = pos[old]
			best[it.Index] = it
		}
	}
	sel, err := topn.New(0, func(it *core.Item) int { return pos[it] })
	if err != nil {
		return nil, err
	}
	for _, it := range best {
		sel.Offer(it, it.Score)
	}
	entries := sel.SortedDescending()
	out := make([]*core.Item, len(entries))
	for i, e := range entries {
		out[i] = e.Item
	}
	return out, nil
}
