package recall

import (
	"context"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pipeline"
)

// Node 把单个召回源包装成 Pipeline 的 Recall Node，忽略上游输入。
type Node struct {
	Source Source
}

func (n *Node) Name() string        { return n.Source.Name() }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Source.Recall(ctx, rctx)
}
