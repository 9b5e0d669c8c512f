package rerank

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/knnkit/core"
)

func indices(cs []Candidate) []int {
	out := make([]int, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Index)
	}
	return out
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"zero", Options{}, true},
		{"one", Options{Lambda: 1, Cutoff: 3}, true},
		{"negative lambda", Options{Lambda: -0.1}, false},
		{"lambda above one", Options{Lambda: 1.1}, false},
		{"nan lambda", Options{Lambda: math.NaN()}, false},
		{"negative cutoff", Options{Lambda: 0.5, Cutoff: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, core.IsConfigError(err))
		})
	}
}

// 距离为常数的 MMR 让新颖性对所有候选相同。
func constant(d float64) Distance {
	return func(a, b int) float64 { return d }
}

func TestGreedy_LambdaOneIsVerbatim(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := make([]Candidate, 30)
	for i := range pool {
		// 故意不按相关性排序
		pool[i] = Candidate{Index: rng.Intn(1000), Relevance: rng.Float64()}
	}
	dist := func(a, b int) float64 { return math.Abs(float64(a-b)) / 1000 }

	for _, normalize := range []bool{false, true} {
		got, err := Greedy(pool, Options{Lambda: 1, Normalize: normalize}, MMR(dist))
		require.NoError(t, err)
		assert.Equal(t, pool, got)

		got, err = Greedy(pool, Options{Lambda: 1, Cutoff: 7, Normalize: normalize}, MMR(dist))
		require.NoError(t, err)
		assert.Equal(t, pool[:7], got)
	}
}

func TestGreedy_LambdaZeroPicksMostNovel(t *testing.T) {
	aspects := map[int][]int{10: {1}, 11: {0}, 12: {0, 1}}
	intents := map[int]float64{0: 0.9, 1: 0.1}
	pool := []Candidate{{10, 1.0}, {11, 0.5}, {12, 0.2}}

	got, err := Greedy(pool, Options{Lambda: 0}, XQuAD(intents, func(i int) []int { return aspects[i] }))
	require.NoError(t, err)
	// 11 覆盖主意图；之后方面 0 已饱和，10 的剩余新颖性 0.1 高于 12 的 0.05
	assert.Equal(t, []int{11, 10, 12}, indices(got))
}

func TestGreedy_TiesKeepUpstreamOrder(t *testing.T) {
	pool := []Candidate{{5, 1}, {3, 1}, {9, 1}, {1, 1}}
	for _, normalize := range []bool{false, true} {
		for _, lambda := range []float64{0, 0.3, 0.8} {
			got, err := Greedy(pool, Options{Lambda: lambda, Normalize: normalize}, MMR(constant(1)))
			require.NoError(t, err)
			assert.Equal(t, []int{5, 3, 9, 1}, indices(got))
		}
	}
}

func TestGreedy_Cutoff(t *testing.T) {
	pool := []Candidate{{0, 3}, {1, 2}, {2, 1}}
	tests := []struct {
		cutoff int
		want   int
	}{
		{0, 3},
		{2, 2},
		{10, 3},
	}
	for _, tt := range tests {
		got, err := Greedy(pool, Options{Lambda: 0.5, Cutoff: tt.cutoff}, MMR(constant(1)))
		require.NoError(t, err)
		assert.Len(t, got, tt.want)
	}

	got, err := Greedy(nil, Options{Lambda: 0.5, Cutoff: 4}, MMR(constant(1)))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGreedy_RejectsBadInput(t *testing.T) {
	_, err := Greedy([]Candidate{{0, 1}}, Options{Lambda: 2}, MMR(constant(1)))
	assert.True(t, core.IsConfigError(err))

	_, err = Greedy([]Candidate{{0, 1}}, Options{Lambda: 0.5}, Strategy[int]{Name: "empty"})
	assert.True(t, core.IsConfigError(err))
}

func TestGreedy_DoesNotMutatePool(t *testing.T) {
	pool := []Candidate{{0, 1}, {1, 0.9}, {2, 0.1}}
	snapshot := append([]Candidate(nil), pool...)
	_, err := Greedy(pool, Options{Lambda: 0.2}, MMR(func(a, b int) float64 { return float64(a + b) }))
	require.NoError(t, err)
	assert.Equal(t, snapshot, pool)
}

func TestZScore(t *testing.T) {
	xs := []float64{1, 2, 3}
	zscore(xs)
	assert.InDelta(t, -math.Sqrt(1.5), xs[0], 1e-12)
	assert.InDelta(t, 0, xs[1], 1e-12)
	assert.InDelta(t, math.Sqrt(1.5), xs[2], 1e-12)

	flat := []float64{4, 4}
	zscore(flat)
	assert.Equal(t, []float64{0, 0}, flat)

	one := []float64{7}
	zscore(one)
	assert.Equal(t, []float64{0}, one)
}

func TestGreedy_AdvanceCalledOncePerPick(t *testing.T) {
	calls := 0
	s := Strategy[int]{
		Name:    "count",
		Novelty: func(Candidate, int) float64 { return 0 },
		Advance: func(state int, _ Candidate) int {
			calls++
			return state + 1
		},
	}
	got, err := Greedy([]Candidate{{0, 1}, {1, 1}, {2, 1}, {3, 1}}, Options{Lambda: 0.5, Cutoff: 3}, s)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, calls)
}
