// Package neighborhood 基于相似度引擎为每个实体选出邻居列表。
//
// 邻居列表按权重降序，同权重按邻居下标升序；NaN 与自身永远不会成为邻居。
// 只有与实体共现过（在相似度稀疏支撑内）的实体才可能成为邻居。
package neighborhood

import (
	"math"
	"sort"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pkg/topn"
	"github.com/rushteam/knnkit/similarity"
)

// Neighbor 是一个邻居及其相似度权重。
type Neighbor struct {
	Index  int     `json:"i"`
	Weight float64 `json:"w"`
}

// Neighborhood 为每个实体提供有序邻居列表。实现必须可被并发读取，
// 返回的切片调用方只读。
type Neighborhood interface {
	Neighbors(idx int) []Neighbor
	NumEntities() int
}

// Source 是邻域计算所需的相似度来源，*similarity.Similarity 实现此接口。
type Source interface {
	NumEntities() int
	Similar(a int) []similarity.Score
}

var _ Source = (*similarity.Similarity)(nil)

// TopKNeighborhood 为每个实体保留相似度最高的 k 个邻居，每次读取时现算。
type TopKNeighborhood struct {
	src Source
	k   int
}

// TopK 创建 top-k 邻域；k 必须为正数。
func TopK(src Source, k int) (*TopKNeighborhood, error) {
	if src == nil {
		return nil, core.NewConfigError(core.ModuleNeighborhood, "similarity source is required")
	}
	if k <= 0 {
		return nil, core.NewConfigError(core.ModuleNeighborhood, "k must be > 0, got %d", k)
	}
	return &TopKNeighborhood{src: src, k: k}, nil
}

func (n *TopKNeighborhood) NumEntities() int { return n.src.NumEntities() }
func (n *TopKNeighborhood) Name() string     { return "topk" }

func (n *TopKNeighborhood) Neighbors(idx int) []Neighbor {
	sel, _ := topn.Ints(n.k)
	for _, s := range n.src.Similar(idx) {
		if s.B == idx {
			continue
		}
		sel.Offer(s.B, s.Value)
	}
	return fromEntries(sel.SortedDescending())
}

// ThresholdNeighborhood 为每个实体保留相似度 >= t 的全部邻居。
//
// 列表长度没有上界：阈值过低时每个实体的邻居数可能接近实体总数，
// 内存与聚合开销由调用方承担。
type ThresholdNeighborhood struct {
	src Source
	t   float64
}

// Threshold 创建阈值邻域；t 不能为 NaN。
func Threshold(src Source, t float64) (*ThresholdNeighborhood, error) {
	if src == nil {
		return nil, core.NewConfigError(core.ModuleNeighborhood, "similarity source is required")
	}
	if math.IsNaN(t) {
		return nil, core.NewConfigError(core.ModuleNeighborhood, "threshold must not be NaN")
	}
	return &ThresholdNeighborhood{src: src, t: t}, nil
}

func (n *ThresholdNeighborhood) NumEntities() int { return n.src.NumEntities() }
func (n *ThresholdNeighborhood) Name() string     { return "threshold" }

func (n *ThresholdNeighborhood) Neighbors(idx int) []Neighbor {
	sims := n.src.Similar(idx)
	out := make([]Neighbor, 0, len(sims))
	for _, s := range sims {
		if s.B == idx || math.IsNaN(s.Value) || s.Value < n.t {
			continue
		}
		out = append(out, Neighbor{Index: s.B, Weight: s.Value})
	}
	sortNeighbors(out)
	return out
}

func fromEntries(entries []topn.Entry[int]) []Neighbor {
	out := make([]Neighbor, len(entries))
	for i, e := range entries {
		out[i] = Neighbor{Index: e.Item, Weight: e.Score}
	}
	return out
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Weight != ns[j].Weight {
			return ns[i].Weight > ns[j].Weight
		}
		return ns[i].Index < ns[j].Index
	})
}

// name 返回邻域模式名（用于日志/指标）。
func name(nb Neighborhood) string {
	if named, ok := nb.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "custom"
}
