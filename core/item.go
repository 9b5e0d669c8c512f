package core

import "github.com/rushteam/knnkit/pkg/utils"

// Item 是推荐链路中的统一承载结构：物品稠密下标、分数、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
// 下标到外部 ID 的解析由调用方通过 index.Entities 完成。
type Item struct {
	Index  int
	Score  float64
	Labels map[string]utils.Label
}

func NewItem(index int, score float64) *Item {
	return &Item{Index: index, Score: score}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Indices 返回列表中物品下标（保持顺序）。
func Indices(items []*Item) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it.Index)
		}
	}
	return out
}
