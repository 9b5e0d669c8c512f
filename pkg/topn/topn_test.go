package topn

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/knnkit/core"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"bounded", 5, false},
		{"unbounded", 0, false},
		{"negative rejected", -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Ints(tt.capacity)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capacity, s.Capacity())
		})
	}
}

func TestSelector_TieBreakByKey(t *testing.T) {
	s, err := Ints(2)
	require.NoError(t, err)

	s.Offer(7, 1.0)
	s.Offer(3, 1.0)
	s.Offer(5, 1.0)
	s.Offer(1, 0.5)

	got := s.SortedDescending()
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Item)
	assert.Equal(t, 5, got[1].Item)
}

func TestSelector_NaNDiscarded(t *testing.T) {
	s, err := Ints(3)
	require.NoError(t, err)

	assert.False(t, s.Offer(1, math.NaN()))
	assert.True(t, s.Offer(2, 0.1))
	assert.Equal(t, 1, s.Len())
}

func TestSelector_Unbounded(t *testing.T) {
	s, err := Ints(0)
	require.NoError(t, err)

	for i, v := range []float64{0.3, 0.9, 0.1, 0.9} {
		s.Offer(i, v)
	}
	got := s.SortedDescending()
	keys := make([]int, 0, len(got))
	for _, e := range got {
		keys = append(keys, e.Item)
	}
	assert.Equal(t, []int{1, 3, 0, 2}, keys)
}

func TestSelector_Min(t *testing.T) {
	s, err := Ints(3)
	require.NoError(t, err)

	_, ok := s.Min()
	assert.False(t, ok)

	s.Offer(1, 0.5)
	s.Offer(2, 0.2)
	s.Offer(3, 0.9)
	s.Offer(4, 0.4)

	m, ok := s.Min()
	require.True(t, ok)
	assert.Equal(t, 4, m.Item)
}

// 随机输入与暴力排序对比：保留集合恰为全序下最大的 K 个。
func TestSelector_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := rng.Intn(60)
		k := rng.Intn(12)

		entries := make([]Entry[int], 0, n)
		s, err := Ints(k)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			// 粗粒度分数以制造大量同分
			score := float64(rng.Intn(5))
			key := rng.Intn(1000)
			entries = append(entries, Entry[int]{Item: key, Key: key, Score: score})
			s.Offer(key, score)
		}

		sort.Slice(entries, func(i, j int) bool { return Better(entries[i], entries[j]) })
		want := entries
		if k > 0 && len(want) > k {
			want = want[:k]
		}

		got := s.SortedDescending()
		require.Len(t, got, len(want), "round %d", round)
		for i := range want {
			assert.Equal(t, want[i].Score, got[i].Score, "round %d pos %d", round, i)
			assert.Equal(t, want[i].Key, got[i].Key, "round %d pos %d", round, i)
		}
	}
}

func TestSelector_Reset(t *testing.T) {
	s, err := Ints(2)
	require.NoError(t, err)
	s.Offer(1, 1)
	s.Reset()
	assert.Equal(t, 0, s.Len())
	s.Offer(2, 2)
	got := s.SortedDescending()
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Item)
}
