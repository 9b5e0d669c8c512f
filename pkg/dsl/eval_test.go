package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pkg/utils"
)

func TestExpr_Evaluate(t *testing.T) {
	item := core.NewItem(3, 0.8)
	item.PutLabel("recall_source", utils.Label{Value: "u2i", Source: "recall"})
	rctx := &core.RecommendContext{UserIndex: 1, Scene: "home", Params: map[string]any{"min_score": 0.5}}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty is true", "", true},
		{"score", "item.score > 0.7", true},
		{"index", "item.index == 4", false},
		{"label", `label.recall_source == "u2i"`, true},
		{"label presence", "has(label.category)", false},
		{"context", `rctx.scene == "home" && item.score > rctx.params.min_score`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := e.Evaluate(item, rctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("item.score >")
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
}

func TestExpr_NonBoolean(t *testing.T) {
	e, err := Compile("item.score")
	require.NoError(t, err)
	_, err = e.Evaluate(core.NewItem(0, 1), nil)
	assert.Error(t, err)
}
