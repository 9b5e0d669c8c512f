// Package builders 注册内置 Pipeline Node 的构建逻辑。
//
// 纯配置即可构建的 Node 在 init 中注册到全局注册表；
// 依赖偏好矩阵、相似度等运行期数据的 Node 由 Factory(env) 额外注册。
package builders

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/knnkit/config"
	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/filter"
	"github.com/rushteam/knnkit/metrics"
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/pkg/conv"
	"github.com/rushteam/knnkit/recall"
	"github.com/rushteam/knnkit/rerank"
)

func init() {
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("filter", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(cfg, nil)
	})
}

// Env 是构建运行期 Node 所需的依赖。
type Env struct {
	Stack *config.Stack

	// Store 为黑名单、热门列表等提供数据（可选）
	Store core.Store

	// Aspects 为 xQuAD 提供物品方面（可选，未设置时不能使用 rerank.xquad）
	Aspects rerank.ItemAspects

	// Vectors 为 MMR 提供稠密特征（可选，distance: vector 时使用）
	Vectors func(item int) []float64

	// Memo 是批次级意图记忆表（可选）
	Memo *rerank.Memo[map[int]float64]

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Factory 返回全局注册表的副本，并追加绑定到 env 的运行期 Node。
func Factory(env *Env) *pipeline.NodeFactory {
	f := config.DefaultFactory()
	if env == nil || env.Stack == nil {
		return f
	}
	f.Register("recall.knn", env.buildKNNNode)
	f.Register("recall.hot", env.buildHotNode)
	f.Register("recall.fanout", env.buildFanoutNode)
	f.Register("rerank.mmr", env.buildMMRNode)
	f.Register("rerank.xquad", env.buildXQuADNode)
	f.Register("filter", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return buildFilterNode(cfg, env)
	})
	return f
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n < 0 {
		return nil, core.NewConfigError(core.ModuleConfig, "rerank.topn: n must be >= 0, got %d", n)
	}
	return &rerank.TopNNode{N: n}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	labelKey := conv.ConfigGet(cfg, "label_key", "category")
	if labelKey == "" {
		labelKey = "category"
	}
	return &rerank.Diversity{
		LabelKey:       labelKey,
		MaxPerCategory: conv.ConfigGetInt(cfg, "max_per_category", 1),
		Demote:         conv.ConfigGet(cfg, "demote", false),
	}, nil
}

func BuildExprFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, core.NewConfigError(core.ModuleConfig, "filter.expr: expr is required")
	}
	f, err := filter.NewExprFilter(expr, conv.ConfigGet(cfg, "invert", false))
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

// buildFilterNode 支持 blacklist / user_block / expr，env 非空时额外支持 seen 与基于 Store 的黑名单。
func buildFilterNode(cfg map[string]interface{}, env *Env) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	var adapter *filter.StoreAdapter
	if env != nil && env.Store != nil {
		adapter = filter.NewStoreAdapter(env.Store)
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "blacklist":
			indices := conv.SliceAnyToInt(filterMap["items"])
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewBlacklistFilter(indices, adapter, key))
		case "user_block":
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			filters = append(filters, filter.NewUserBlockFilter(adapter, keyPrefix))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""), conv.ConfigGet(filterMap, "invert", false))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		case "seen":
			if env == nil || env.Stack == nil {
				return nil, fmt.Errorf("seen filter needs preferences")
			}
			filters = append(filters, filter.NewSeenFilter(env.Stack.Prefs))
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	node := &filter.FilterNode{Filters: filters}
	if env != nil {
		node.Logger = env.Logger
	}
	return node, nil
}

func (env *Env) buildKNNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	src, err := env.knnSource(cfg)
	if err != nil {
		return nil, err
	}
	return &recall.Node{Source: src}, nil
}

// knnSource 默认复用 Stack 中的推荐器；给出 exponent / max_length / exclude_seen 时基于同一邻域另建一个。
func (env *Env) knnSource(cfg map[string]interface{}) (recall.Source, error) {
	st := env.Stack
	_, hasExp := cfg["exponent"]
	_, hasMax := cfg["max_length"]
	_, hasSeen := cfg["exclude_seen"]
	if !hasExp && !hasMax && !hasSeen {
		return st.Recommender, nil
	}
	opts := []recall.Option{
		recall.WithExponent(conv.ConfigGetInt(cfg, "exponent", st.Config.Exponent)),
		recall.WithMaxLength(conv.ConfigGetInt(cfg, "max_length", st.Config.MaxLength)),
		recall.WithExcludeSeen(conv.ConfigGet(cfg, "exclude_seen", true)),
		recall.WithLogger(env.Logger),
		recall.WithMetrics(env.Metrics),
	}
	if st.Config.Mode == "item" {
		return recall.NewItemKNN(st.Prefs, st.Neighborhood, opts...)
	}
	return recall.NewUserKNN(st.Prefs, st.Neighborhood, opts...)
}

func (env *Env) hotSource(cfg map[string]interface{}) *recall.Hot {
	return &recall.Hot{
		Store: env.Store,
		Key:   conv.ConfigGet(cfg, "key", ""),
		Items: env.Stack.Items,
		Limit: conv.ConfigGetInt(cfg, "limit", 100),
	}
}

func (env *Env) buildHotNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return env.hotSource(cfg), nil
}

func (env *Env) buildFanoutNode(cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "knn":
			src, err := env.knnSource(sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "hot":
			sources = append(sources, env.hotSource(sourceMap))
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", "first"),
		Logger:        env.Logger,
		Metrics:       env.Metrics,
	}
	if ms := conv.ConfigGetInt(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	return fanout, nil
}

// rerankOptions 以 Stack 的配置为默认值，node 级配置覆盖。
func (env *Env) rerankOptions(cfg map[string]interface{}) (rerank.Options, error) {
	base := env.Stack.Config.RerankOptions()
	opts := rerank.Options{
		Lambda:    conv.ConfigGetFloat64(cfg, "lambda", base.Lambda),
		Cutoff:    conv.ConfigGetInt(cfg, "cutoff", base.Cutoff),
		Normalize: conv.ConfigGet(cfg, "normalize", base.Normalize),
	}
	return opts, opts.Validate()
}

func (env *Env) buildMMRNode(cfg map[string]interface{}) (pipeline.Node, error) {
	opts, err := env.rerankOptions(cfg)
	if err != nil {
		return nil, err
	}
	var dist rerank.Distance
	switch d := conv.ConfigGet(cfg, "distance", "similarity"); d {
	case "similarity":
		dist = rerank.SimilarityDistance(env.Stack.ItemSimilarity.Func())
	case "vector":
		if env.Vectors == nil {
			return nil, core.NewConfigError(core.ModuleConfig, "rerank.mmr: distance vector needs item vectors")
		}
		dist = rerank.CosineDistance(env.Vectors)
	default:
		return nil, core.NewConfigError(core.ModuleConfig, "rerank.mmr: unknown distance %q", d)
	}
	return &rerank.MMRNode{Distance: dist, Options: opts, Metrics: env.Metrics, Logger: env.Logger}, nil
}

func (env *Env) buildXQuADNode(cfg map[string]interface{}) (pipeline.Node, error) {
	opts, err := env.rerankOptions(cfg)
	if err != nil {
		return nil, err
	}
	if env.Aspects == nil {
		return nil, core.NewConfigError(core.ModuleConfig, "rerank.xquad: item aspects are required")
	}
	model, err := rerank.NewIntentModel(env.Stack.Prefs, env.Aspects)
	if err != nil {
		return nil, err
	}
	return &rerank.XQuADNode{
		Model:   model,
		Aspects: env.Aspects,
		Memo:    env.Memo,
		Options: opts,
		Metrics: env.Metrics,
		Logger:  env.Logger,
	}, nil
}
