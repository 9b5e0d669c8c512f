package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigGetters(t *testing.T) {
	m := map[string]any{
		"n_int":     3,
		"n_float":   4.0,
		"n_frac":    4.5,
		"name":      "mmr",
		"lambda":    1,
		"normalize": true,
		"ids":       []any{1, 2.0, "x", 3.5},
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"int from int", ConfigGetInt(m, "n_int", 0), 3},
		{"int from float", ConfigGetInt(m, "n_float", 0), 4},
		{"int rejects fraction", ConfigGetInt(m, "n_frac", -1), -1},
		{"int missing", ConfigGetInt(m, "missing", 7), 7},
		{"float from int", ConfigGetFloat64(m, "lambda", 0.5), 1.0},
		{"float ignores bool", ConfigGetFloat64(m, "normalize", 0.5), 0.5},
		{"string", ConfigGet(m, "name", ""), "mmr"},
		{"wrong type", ConfigGet(m, "name", 0), 0},
		{"bool", ConfigGet(m, "normalize", false), true},
		{"ints", SliceAnyToInt(m["ids"]), []int{1, 2}},
		{"ints invalid", SliceAnyToInt("x"), []int(nil)},
		{"nil map", ConfigGet[string](nil, "x", "d"), "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
