package recall

import (
	"context"
	"encoding/json"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/pkg/topn"
	"github.com/rushteam/knnkit/pkg/utils"
)

// Hot 是热门召回源，通常作为邻域推荐的兜底（未知实体 / 邻居为空）。
//   - 如果配置了 Store 与 Key，从 Store 读取 JSON 下标数组，例如 [3,1,7]
//   - 否则按物品的交互人数（物品行长度）降序取前 Limit 个
//
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用
type Hot struct {
	Store core.Store
	Key   string

	// Items 是物品行（偏好矩阵的转置），用于现算热门
	Items core.PreferenceSource

	// Limit 返回数量，0 表示不限
	Limit int
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Store != nil && r.Key != "" {
		data, err := r.Store.Get(ctx, r.Key)
		if err == nil {
			var indices []int
			if json.Unmarshal(data, &indices) == nil && len(indices) > 0 {
				if r.Limit > 0 && len(indices) > r.Limit {
					indices = indices[:r.Limit]
				}
				out := make([]*core.Item, 0, len(indices))
				for rank, idx := range indices {
					out = append(out, r.item(idx, float64(len(indices)-rank)))
				}
				return out, nil
			}
		}
	}

	if r.Items == nil {
		return nil, nil
	}
	sel, err := topn.Ints(max(r.Limit, 0))
	if err != nil {
		return nil, err
	}
	for idx := range r.Items.AllEntities() {
		if n := len(r.Items.PreferencesOf(idx)); n > 0 {
			sel.Offer(idx, float64(n))
		}
	}
	entries := sel.SortedDescending()
	out := make([]*core.Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, r.item(e.Item, e.Score))
	}
	return out, nil
}

func (r *Hot) item(idx int, score float64) *core.Item {
	it := core.NewItem(idx, score)
	it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	return it
}
