package rerank

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/metrics"
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/pkg/utils"
)

// apply 按重排结果调整 items 顺序：前 len(head) 个为重排结果，其余保持原顺序追加在后。
func apply(items []*core.Item, head []Candidate, strategy string) []*core.Item {
	byIndex := make(map[int][]*core.Item, len(items))
	for _, it := range items {
		if it != nil {
			byIndex[it.Index] = append(byIndex[it.Index], it)
		}
	}
	used := make(map[*core.Item]struct{}, len(head))
	out := make([]*core.Item, 0, len(items))
	for _, c := range head {
		q := byIndex[c.Index]
		if len(q) == 0 {
			continue
		}
		it := q[0]
		byIndex[c.Index] = q[1:]
		used[it] = struct{}{}
		it.PutLabel("rerank", utils.Label{Value: strategy, Source: "rerank"})
		it.PutLabel("rerank_relevance", utils.ScoreLabel(c.Relevance, "rerank"))
		out = append(out, it)
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		if _, ok := used[it]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// MMRNode 是 MMR 多样性重排节点。
//
// 示例：
//
//	node := &rerank.MMRNode{
//	    Distance: rerank.SimilarityDistance(itemSim.Func()),
//	    Options:  rerank.Options{Lambda: 0.7, Cutoff: 20},
//	}
type MMRNode struct {
	Distance Distance
	Options  Options
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

func (n *MMRNode) Name() string        { return "rerank.mmr" }
func (n *MMRNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *MMRNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	if n.Distance == nil {
		return nil, core.NewConfigError(core.ModuleRerank, "mmr node needs a distance function")
	}
	head, err := Greedy(Candidates(items), n.Options, MMR(n.Distance))
	if err != nil {
		return nil, err
	}
	n.Metrics.Reranked("mmr", len(head))
	n.Logger.Debug().Int("pool", len(items)).Int("picked", len(head)).Msg("mmr rerank done")
	return apply(items, head, "mmr"), nil
}

// XQuADNode 是意图感知的方面覆盖重排节点。
// Memo 由调用方在批次开始时创建、批次结束时丢弃；为 nil 时每次请求重新估计意图。
type XQuADNode struct {
	Model   *IntentModel
	Aspects ItemAspects
	Memo    *Memo[map[int]float64]
	Options Options
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func (n *XQuADNode) Name() string        { return "rerank.xquad" }
func (n *XQuADNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *XQuADNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	if n.Model == nil || n.Aspects == nil {
		return nil, core.NewConfigError(core.ModuleRerank, "xquad node needs an intent model and item aspects")
	}
	user := -1
	if rctx.Known() {
		user = rctx.UserIndex
	}
	pool := Candidates(items)
	intents := n.Model.Intents(user, pool, n.Memo)
	head, err := Greedy(pool, n.Options, XQuAD(intents, n.Aspects))
	if err != nil {
		return nil, err
	}
	n.Metrics.Reranked("xquad", len(head))
	n.Logger.Debug().
		Int("user", user).
		Ints("aspects", sortedAspects(intents)).
		Int("picked", len(head)).
		Msg("xquad rerank done")
	return apply(items, head, "xquad"), nil
}
