package config

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/metrics"
	"github.com/rushteam/knnkit/neighborhood"
	"github.com/rushteam/knnkit/recall"
	"github.com/rushteam/knnkit/similarity"
)

// Stack 是按配置装配好的只读推荐链路，可在多个查询协程间共享。
type Stack struct {
	Config *Config

	// Prefs 为用户行，Items 为物品行（Prefs 的转置）
	Prefs *core.SparseMatrix
	Items *core.SparseMatrix

	// Similarity 是邻域所在一侧的相似度：user 模式为用户间，item 模式为物品间
	Similarity *similarity.Similarity

	// ItemSimilarity 总是物品间相似度，供 MMR 之类的重排距离使用
	ItemSimilarity *similarity.Similarity

	Neighborhood *neighborhood.CachedNeighborhood
	Recommender  recall.Recommender
}

// BuildStack 按配置构建相似度、邻域（一次性物化）与推荐器。
// 所有参数错误都在这里以配置错误返回，查询阶段不再校验。
func BuildStack(
	ctx context.Context,
	cfg *Config,
	prefs *core.SparseMatrix,
	logger zerolog.Logger,
	m *metrics.Metrics,
) (*Stack, error) {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if prefs == nil {
		return nil, core.NewConfigError(core.ModuleConfig, "preferences are required")
	}

	start := time.Now()
	st := &Stack{Config: cfg, Prefs: prefs, Items: prefs.Transpose()}
	simOpts := []similarity.Option{
		similarity.WithDense(cfg.Dense),
		similarity.WithAlpha(cfg.Alpha),
		similarity.WithLogger(logger),
		similarity.WithMetrics(m),
	}

	var err error
	st.ItemSimilarity, err = similarity.New(st.Items, cfg.Kind(), simOpts...)
	if err != nil {
		return nil, err
	}
	st.Similarity = st.ItemSimilarity
	if cfg.Mode == "user" {
		st.Similarity, err = similarity.New(prefs, cfg.Kind(), simOpts...)
		if err != nil {
			return nil, err
		}
	}

	var nb neighborhood.Neighborhood
	switch cfg.Neighborhood {
	case "threshold":
		nb, err = neighborhood.Threshold(st.Similarity, cfg.Threshold)
	default:
		nb, err = neighborhood.TopK(st.Similarity, cfg.K)
	}
	if err != nil {
		return nil, err
	}
	st.Neighborhood, err = neighborhood.Cache(ctx, nb,
		neighborhood.WithWorkers(cfg.Workers),
		neighborhood.WithLogger(logger),
		neighborhood.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	recOpts := []recall.Option{
		recall.WithExponent(cfg.Exponent),
		recall.WithMaxLength(cfg.MaxLength),
		recall.WithLogger(logger),
		recall.WithMetrics(m),
	}
	if cfg.Mode == "item" {
		st.Recommender, err = recall.NewItemKNN(prefs, st.Neighborhood, recOpts...)
	} else {
		st.Recommender, err = recall.NewUserKNN(prefs, st.Neighborhood, recOpts...)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("component", "config").
		Str("mode", cfg.Mode).
		Str("similarity", string(cfg.Kind())).
		Str("neighborhood", cfg.Neighborhood).
		Int("users", prefs.NumRows()).
		Int("items", st.Items.NumRows()).
		Dur("took", time.Since(start)).
		Msg("stack built")
	return st, nil
}
