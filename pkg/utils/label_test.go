package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{"empty existing", Label{}, Label{Value: "a", Source: "recall"}, Label{Value: "a", Source: "recall"}},
		{"empty incoming", Label{Value: "a", Source: "recall"}, Label{}, Label{Value: "a", Source: "recall"}},
		{"append", Label{Value: "a", Source: "recall"}, Label{Value: "b", Source: "rerank"}, Label{Value: "a|b", Source: "recall,rerank"}},
		{"same source once", Label{Value: "a", Source: "recall"}, Label{Value: "b", Source: "recall"}, Label{Value: "a|b", Source: "recall"}},
		{"duplicate value", Label{Value: "a|b", Source: "recall"}, Label{Value: "b", Source: "rerank"}, Label{Value: "a|b", Source: "recall"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeLabel(tt.existing, tt.incoming))
		})
	}
}

func TestLabelValues(t *testing.T) {
	l := Label{Value: "recall.u2i|recall.hot"}
	assert.Equal(t, []string{"recall.u2i", "recall.hot"}, l.Values())
	assert.True(t, l.Has("recall.hot"))
	assert.False(t, l.Has("recall"))
	assert.Nil(t, Label{}.Values())
}

func TestScoreLabel(t *testing.T) {
	assert.Equal(t, Label{Value: "0.5", Source: "recall"}, ScoreLabel(0.5, "recall"))
	assert.Equal(t, "0.333333", ScoreLabel(1.0/3, "rerank").Value)
}
