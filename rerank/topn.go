package rerank

import (
	"context"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在重排后截取前 N 个物品。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Node{Source: userKNN},          // 邻域召回
//	        &rerank.MMRNode{...},                    // 多样性重排
//	        &rerank.TopNNode{N: 20},                 // 截取 Top 20
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量，N <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
