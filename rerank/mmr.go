package rerank

import (
	"math"

	"gonum.org/v1/gonum/blas/gonum"

	"github.com/rushteam/knnkit/similarity"
)

// Distance 是两个物品之间的距离，越大越不相似。
type Distance func(a, b int) float64

var blas = gonum.Implementation{}

// CosineDistance 基于稠密特征向量计算 1 - cos(a,b)。
// 缺少向量、维度不一致或零向量时距离记为 1（视为正交）。
func CosineDistance(vector func(item int) []float64) Distance {
	return func(a, b int) float64 {
		va, vb := vector(a), vector(b)
		n := len(va)
		if n == 0 || n != len(vb) {
			return 1
		}
		na, nb := blas.Dnrm2(n, va, 1), blas.Dnrm2(n, vb, 1)
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - blas.Ddot(n, va, 1, vb, 1)/(na*nb)
	}
}

// SimilarityDistance 把物品相似度转换为距离 1 - sim；相似度未定义（NaN）时距离记为 1。
func SimilarityDistance(sim similarity.Func) Distance {
	return func(a, b int) float64 {
		s := sim(a, b)
		if math.IsNaN(s) {
			return 1
		}
		return 1 - s
	}
}

// mmrState 记录每个剩余候选到已选集合的距离和。
type mmrState struct {
	pool     []Candidate
	sum      map[int]float64
	selected map[int]struct{}
}

// MMR 返回最大边际相关（Maximal Marginal Relevance）策略：
// novelty(c) = c 到已选物品的平均距离，尚未选中任何物品时为 0。
// 每次选中后对所有剩余候选增量更新距离和，单步 O(|Pool|)。
func MMR(dist Distance) Strategy[*mmrState] {
	return Strategy[*mmrState]{
		Name: "mmr",
		Init: func(pool []Candidate) *mmrState {
			return &mmrState{
				pool:     pool,
				sum:      make(map[int]float64, len(pool)),
				selected: make(map[int]struct{}, len(pool)),
			}
		},
		Novelty: func(c Candidate, s *mmrState) float64 {
			if len(s.selected) == 0 {
				return 0
			}
			return s.sum[c.Index] / float64(len(s.selected))
		},
		Advance: func(s *mmrState, picked Candidate) *mmrState {
			s.selected[picked.Index] = struct{}{}
			delete(s.sum, picked.Index)
			for _, c := range s.pool {
				if _, ok := s.selected[c.Index]; ok {
					continue
				}
				s.sum[c.Index] += dist(c.Index, picked.Index)
			}
			return s
		},
	}
}
