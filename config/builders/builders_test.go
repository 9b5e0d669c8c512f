package builders

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/knnkit/config"
	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/rerank"
	"github.com/rushteam/knnkit/store"
)

func stack(t *testing.T) *config.Stack {
	t.Helper()
	prefs, err := core.NewSparseMatrix([]core.SparseRow{
		{{Index: 0, Value: 1}, {Index: 1, Value: 1}},
		{{Index: 0, Value: 1}, {Index: 2, Value: 1}, {Index: 3, Value: 1}},
		{{Index: 1, Value: 1}, {Index: 2, Value: 1}, {Index: 4, Value: 1}},
	}, 5)
	require.NoError(t, err)
	cfg := config.Default()
	cfg.K = 2
	st, err := config.BuildStack(context.Background(), cfg, prefs, zerolog.Nop(), nil)
	require.NoError(t, err)
	return st
}

func TestRegistry_InitBuilders(t *testing.T) {
	types := config.SupportedTypes()
	for _, want := range []string{"filter", "filter.expr", "rerank.diversity", "rerank.topn"} {
		assert.Contains(t, types, want)
	}

	_, err := BuildExprFilterNode(map[string]interface{}{})
	assert.True(t, core.IsConfigError(err))

	_, err = BuildTopNNode(map[string]interface{}{"n": -1})
	assert.True(t, core.IsConfigError(err))
}

func TestFactory_EndToEnd(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	require.NoError(t, mem.Set(context.Background(), "bl", []byte(`[4]`)))

	env := &Env{
		Stack:   stack(t),
		Store:   mem,
		Aspects: func(item int) []int { return []int{item % 2} },
		Memo:    rerank.NewMemo[map[int]float64](),
		Logger:  zerolog.Nop(),
	}
	factory := Factory(env)

	cfg, err := pipeline.ParseYAML([]byte(`
pipeline:
  name: e2e
  nodes:
    - type: recall.fanout
      config:
        merge_strategy: priority
        sources:
          - type: knn
            exclude_seen: true
          - type: hot
            limit: 5
    - type: filter
      config:
        filters:
          - type: seen
          - type: blacklist
            key: bl
    - type: rerank.mmr
      config:
        lambda: 0.7
    - type: rerank.xquad
      config:
        lambda: 0.5
    - type: rerank.topn
      config:
        n: 2
`))
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg, factory))

	p, err := cfg.BuildPipeline(factory, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 5)

	items, err := p.Run(context.Background(), core.NewRecommendContext(0, "u0"), nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		// 0、1 已交互，4 在黑名单
		assert.Contains(t, []int{2, 3}, it.Index)
	}
}

func TestFactory_Errors(t *testing.T) {
	env := &Env{Stack: stack(t)}
	factory := Factory(env)

	tests := []struct {
		name string
		typ  string
		cfg  map[string]interface{}
	}{
		{"xquad without aspects", "rerank.xquad", nil},
		{"mmr vector without vectors", "rerank.mmr", map[string]interface{}{"distance": "vector"}},
		{"mmr unknown distance", "rerank.mmr", map[string]interface{}{"distance": "euclid"}},
		{"mmr bad lambda", "rerank.mmr", map[string]interface{}{"lambda": 3}},
		{"knn negative exponent", "recall.knn", map[string]interface{}{"exponent": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.Build(tt.typ, tt.cfg)
			assert.True(t, core.IsConfigError(err), "%v", err)
		})
	}

	_, err := config.DefaultFactory().Build("filter", map[string]interface{}{
		"filters": []interface{}{map[string]interface{}{"type": "seen"}},
	})
	assert.Error(t, err)

	unknown := &pipeline.Config{}
	unknown.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rank.lr"}}
	assert.Error(t, config.ValidatePipelineConfig(unknown, factory))
}

func TestFactory_KNNNodeReusesStack(t *testing.T) {
	env := &Env{Stack: stack(t)}
	n, err := Factory(env).Build("recall.knn", nil)
	require.NoError(t, err)
	assert.Equal(t, "recall.u2i", n.Name())

	items, err := n.Process(context.Background(), core.NewRecommendContext(0, "u0"), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}
