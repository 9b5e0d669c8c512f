package rerank

import (
	"context"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pipeline"
)

// Diversity 是按类别打散的硬规则：每个类别最多保留 MaxPerCategory 个物品。
// 与 MMR/xQuAD 不同，它不看分数，只按输入顺序计数。
// 类别取自 label[LabelKey].Value，没有类别的物品不计数。
type Diversity struct {
	LabelKey string // 默认 "category"

	// MaxPerCategory 默认 1
	MaxPerCategory int

	// Demote 为 true 时超额物品移到末尾（保持相对顺序）而不是移除
	Demote bool
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	key := n.LabelKey
	if key == "" {
		key = "category"
	}
	quota := max(n.MaxPerCategory, 1)

	counts := make(map[string]int)
	out := make([]*core.Item, 0, len(items))
	var overflow []*core.Item
	for _, it := range items {
		if it == nil {
			continue
		}
		cat := it.Labels[key].Value
		if cat == "" {
			out = append(out, it)
			continue
		}
		if counts[cat] >= quota {
			if n.Demote {
				overflow = append(overflow, it)
			}
			continue
		}
		counts[cat]++
		out = append(out, it)
	}
	return append(out, overflow...), nil
}
