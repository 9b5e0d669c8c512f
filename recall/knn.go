package recall

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/filter"
	"github.com/rushteam/knnkit/neighborhood"
	"github.com/rushteam/knnkit/pkg/topn"
	"github.com/rushteam/knnkit/pkg/utils"
)

// Recommender 是邻域打分的统一接口。
//
// 返回列表按分数降序，同分按物品下标升序，对同一份偏好快照与相同参数输出完全一致。
// 未知查询实体返回空列表而不是错误。
type Recommender interface {
	Source

	// Recommend 对全部被打分的候选应用 pred，取前 maxLength 个（0 表示全部）。
	Recommend(query, maxLength int, pred filter.Predicate) ([]*core.Item, error)

	// RecommendCandidates 只对显式给出的候选打分，未获得分数的候选不出现在结果中。
	RecommendCandidates(query int, candidates []int) ([]*core.Item, error)
}

// knn 是 UserKNN 与 ItemKNN 共享的部分：打分表 -> Top-N。
type knn struct {
	name   string
	prefs  core.PreferenceSource
	nb     neighborhood.Neighborhood
	opts   options
	logger zerolog.Logger
	// scores 为单次查询构建打分表，表归调用协程独占
	scores func(query int) map[int]float64
}

func newKNN(name string, prefs core.PreferenceSource, nb neighborhood.Neighborhood, opts []Option) (*knn, error) {
	if prefs == nil {
		return nil, core.NewConfigError(core.ModuleRecall, "preference source is required")
	}
	if nb == nil {
		return nil, core.NewConfigError(core.ModuleRecall, "neighborhood is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.exponent < 0 {
		return nil, core.NewConfigError(core.ModuleRecall, "exponent must be >= 0, got %d", o.exponent)
	}
	if o.maxLength < 0 {
		return nil, core.NewConfigError(core.ModuleRecall, "max length must be >= 0, got %d", o.maxLength)
	}
	return &knn{
		name:   name,
		prefs:  prefs,
		nb:     nb,
		opts:   o,
		logger: o.logger.With().Str("component", name).Logger(),
	}, nil
}

func (r *knn) Name() string { return r.name }

func (r *knn) weight(w float64) float64 {
	switch r.opts.exponent {
	case 1:
		return w
	case 0:
		return 1
	default:
		return math.Pow(w, float64(r.opts.exponent))
	}
}

func (r *knn) Recommend(query, maxLength int, pred filter.Predicate) ([]*core.Item, error) {
	if maxLength < 0 {
		return nil, core.NewConfigError(core.ModuleRecall, "max length must be >= 0, got %d", maxLength)
	}
	start := time.Now()
	scores := r.scores(query)
	if len(scores) == 0 {
		r.opts.metrics.Recommended(r.name, 0, time.Since(start))
		return nil, nil
	}
	if pred == nil {
		pred = filter.All
	}

	sel, err := topn.Ints(maxLength)
	if err != nil {
		return nil, err
	}
	for item, score := range scores {
		if pred(item) {
			sel.Offer(item, score)
		}
	}
	out := r.items(sel)
	r.opts.metrics.Recommended(r.name, len(out), time.Since(start))
	return out, nil
}

func (r *knn) RecommendCandidates(query int, candidates []int) ([]*core.Item, error) {
	start := time.Now()
	scores := r.scores(query)
	if len(scores) == 0 || len(candidates) == 0 {
		r.opts.metrics.Recommended(r.name, 0, time.Since(start))
		return nil, nil
	}

	sel, err := topn.Ints(0)
	if err != nil {
		return nil, err
	}
	offered := filter.NewSet()
	for _, c := range candidates {
		score, ok := scores[c]
		if !ok || offered.Contains(c) {
			continue
		}
		offered.Add(c)
		sel.Offer(c, score)
	}
	out := r.items(sel)
	r.opts.metrics.Recommended(r.name, len(out), time.Since(start))
	return out, nil
}

// Recall 实现 Source：查询实体取自 rctx.UserIndex。
func (r *knn) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if !rctx.Known() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred := filter.All
	if r.opts.excludeSeen {
		pred = filter.NotSeen(r.prefs.PreferencesOf(rctx.UserIndex))
	}
	items, err := r.Recommend(rctx.UserIndex, r.opts.maxLength, pred)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().
		Int("user", rctx.UserIndex).
		Int("results", len(items)).
		Msg("recall done")
	return items, nil
}

func (r *knn) items(sel *topn.Selector[int]) []*core.Item {
	entries := sel.SortedDescending()
	if len(entries) == 0 {
		return nil
	}
	out := make([]*core.Item, 0, len(entries))
	for _, e := range entries {
		it := core.NewItem(e.Item, e.Score)
		it.PutLabel("recall_source", utils.Label{Value: r.name, Source: "recall"})
		out = append(out, it)
	}
	return out
}

func validQuery(query, n int) bool {
	return query >= 0 && query < n
}

// UserKNN 是基于用户邻域的推荐器（User-based CF, u2i）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 打分：score(i) = Σ_{v ∈ N(u)} sim(u,v)^q × r(v,i)
//
// 邻域与偏好矩阵都只读共享，每次查询的打分表由查询协程独占，
// 因此多个查询可以无锁并发执行。
type UserKNN struct {
	*knn
}

// NewUserKNN 创建 User-KNN。prefs 为用户行（用户 -> 物品），nb 为用户邻域。
func NewUserKNN(prefs core.PreferenceSource, nb neighborhood.Neighborhood, opts ...Option) (*UserKNN, error) {
	base, err := newKNN("recall.u2i", prefs, nb, opts)
	if err != nil {
		return nil, err
	}
	r := &UserKNN{knn: base}
	base.scores = r.scoreMap
	return r, nil
}

func (r *UserKNN) scoreMap(query int) map[int]float64 {
	if !validQuery(query, r.nb.NumEntities()) {
		return nil
	}
	neighbors := r.nb.Neighbors(query)
	if len(neighbors) == 0 {
		return nil
	}
	scores := make(map[int]float64)
	for _, n := range neighbors {
		w := r.weight(n.Weight)
		for _, e := range r.prefs.PreferencesOf(n.Index) {
			scores[e.Index] += w * e.Value
		}
	}
	return scores
}

// ItemKNN 是基于物品邻域的推荐器（Item-based CF, i2i）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 打分：score(i) = Σ_{j ∈ I(u)} Σ_{i ∈ N(j)} sim(j,i)^q × r(u,j)
//
// 物品邻域通常在物品行（偏好矩阵的转置）上构建。
type ItemKNN struct {
	*knn
}

// NewItemKNN 创建 Item-KNN。prefs 为用户行（用户 -> 物品），nb 为物品邻域。
func NewItemKNN(prefs core.PreferenceSource, nb neighborhood.Neighborhood, opts ...Option) (*ItemKNN, error) {
	base, err := newKNN("recall.i2i", prefs, nb, opts)
	if err != nil {
		return nil, err
	}
	r := &ItemKNN{knn: base}
	base.scores = r.scoreMap
	return r, nil
}

func (r *ItemKNN) scoreMap(query int) map[int]float64 {
	if !validQuery(query, r.prefs.NumEntities()) {
		return nil
	}
	row := r.prefs.PreferencesOf(query)
	if len(row) == 0 {
		return nil
	}
	numItems := r.nb.NumEntities()
	scores := make(map[int]float64)
	for _, e := range row {
		if !validQuery(e.Index, numItems) {
			continue
		}
		for _, n := range r.nb.Neighbors(e.Index) {
			scores[n.Index] += r.weight(n.Weight) * e.Value
		}
	}
	return scores
}

var (
	_ Recommender = (*UserKNN)(nil)
	_ Recommender = (*ItemKNN)(nil)
)
