// Package rerank 在上游排好序的候选列表上做贪心重排，在相关性与新颖性/多样性之间折中。
//
// 每一步对剩余候选计算
//
//	objective(c) = λ·relevance(c) + (1-λ)·novelty(c, state)
//
// 选出 objective 最大者（同分取上游排名靠前者），然后用选中项推进 state。
// 具体策略（MMR、xQuAD）只是不同的 novelty/advance 闭包组合。
package rerank

import (
	"math"

	"github.com/rushteam/knnkit/core"
)

// Candidate 是候选池中的一项：物品下标与上游相关性分数。池中顺序即上游排名。
type Candidate struct {
	Index     int
	Relevance float64
}

// Options 是贪心重排的纯值参数。
type Options struct {
	// Lambda 为相关性权重，取值 [0,1]。1 时输出与输入顺序完全一致。
	Lambda float64 `json:"lambda" yaml:"lambda"`

	// Cutoff 为输出长度上限，0 表示重排整个候选池。
	Cutoff int `json:"cutoff" yaml:"cutoff"`

	// Normalize 为 true 时，相关性在整个池上做 z-score，新颖性在每一步的剩余候选上做 z-score；
	// 标准差为 0 时归一化结果为 0。
	Normalize bool `json:"normalize" yaml:"normalize"`
}

// Validate 在构造时拒绝非法参数。
func (o Options) Validate() error {
	if math.IsNaN(o.Lambda) || o.Lambda < 0 || o.Lambda > 1 {
		return core.NewConfigError(core.ModuleRerank, "lambda must be in [0,1], got %v", o.Lambda)
	}
	if o.Cutoff < 0 {
		return core.NewConfigError(core.ModuleRerank, "cutoff must be >= 0, got %d", o.Cutoff)
	}
	return nil
}

// Strategy 描述一个重排策略。S 是单次查询独占的状态，查询结束即丢弃。
type Strategy[S any] struct {
	// Name 用于日志与指标
	Name string

	// Init 基于候选池构造初始状态，可为 nil（使用 S 的零值）
	Init func(pool []Candidate) S

	// Novelty 计算候选在当前状态下的新颖性
	Novelty func(c Candidate, state S) float64

	// Advance 在每次选中后恰好调用一次，返回新状态
	Advance func(state S, selected Candidate) S
}

// Greedy 执行贪心重排，返回长度为 min(cutoff, len(pool)) 的新序列，不修改 pool。
func Greedy[S any](pool []Candidate, opts Options, strategy Strategy[S]) ([]Candidate, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strategy.Novelty == nil {
		return nil, core.NewConfigError(core.ModuleRerank, "strategy %q has no novelty function", strategy.Name)
	}

	cutoff := opts.Cutoff
	if cutoff == 0 || cutoff > len(pool) {
		cutoff = len(pool)
	}
	out := make([]Candidate, 0, cutoff)
	if opts.Lambda == 1 {
		return append(out, pool[:cutoff]...), nil
	}

	var state S
	if strategy.Init != nil {
		state = strategy.Init(pool)
	}

	// 相关性归一化只依赖整个池，计算一次
	rel := make([]float64, len(pool))
	for i, c := range pool {
		rel[i] = c.Relevance
	}
	if opts.Normalize {
		zscore(rel)
	}

	remaining := make([]int, len(pool))
	for i := range remaining {
		remaining[i] = i
	}
	nov := make([]float64, len(pool))

	for len(out) < cutoff && len(remaining) > 0 {
		for j, pos := range remaining {
			nov[j] = strategy.Novelty(pool[pos], state)
		}
		if opts.Normalize {
			zscore(nov[:len(remaining)])
		}

		best, bestObj := -1, 0.0
		for j, pos := range remaining {
			obj := opts.Lambda*rel[pos] + (1-opts.Lambda)*nov[j]
			// remaining 保持上游顺序，严格大于才替换，同分保留排名靠前者；NaN 永远让位
			if best < 0 || (!math.IsNaN(obj) && (math.IsNaN(bestObj) || obj > bestObj)) {
				best, bestObj = j, obj
			}
		}

		selected := pool[remaining[best]]
		out = append(out, selected)
		remaining = append(remaining[:best], remaining[best+1:]...)
		if strategy.Advance != nil {
			state = strategy.Advance(state, selected)
		}
	}
	return out, nil
}

// zscore 原地做 z-score 归一化；标准差为 0（含单元素）时全部置 0。
func zscore(xs []float64) {
	if len(xs) == 0 {
		return
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(xs)))
	for i, x := range xs {
		if std == 0 || math.IsNaN(std) {
			xs[i] = 0
			continue
		}
		xs[i] = (x - mean) / std
	}
}

// Candidates 把 Pipeline 中的 Item 列表转换为候选池，nil 项被跳过。
func Candidates(items []*core.Item) []Candidate {
	pool := make([]Candidate, 0, len(items))
	for _, it := range items {
		if it != nil {
			pool = append(pool, Candidate{Index: it.Index, Relevance: it.Score})
		}
	}
	return pool
}
