package filter

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pkg/utils"
	"github.com/rushteam/knnkit/store"
)

func TestPredicates(t *testing.T) {
	row := core.SparseRow{{Index: 0, Value: 1}, {Index: 2, Value: 1}}

	tests := []struct {
		name string
		p    Predicate
		keep []int
		drop []int
	}{
		{"all", All, []int{0, 1, 99}, nil},
		{"not seen", NotSeen(row), []int{1, 3}, []int{0, 2}},
		{"not seen empty row", NotSeen(nil), []int{0, 2}, nil},
		{"blacklist", Blacklist(5, 7), []int{0, 6}, []int{5, 7}},
		{"allow", NewSet(1, 2).Allow(), []int{1, 2}, []int{0, 3, -1}},
		{"and", And(NotSeen(row), Blacklist(3), nil), []int{1, 4}, []int{0, 2, 3}},
		{"not", Not(Blacklist(1)), []int{1}, []int{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, idx := range tt.keep {
				assert.True(t, tt.p(idx), "keep %d", idx)
			}
			for _, idx := range tt.drop {
				assert.False(t, tt.p(idx), "drop %d", idx)
			}
		})
	}
}

func TestSet_Union(t *testing.T) {
	s := NewSet(1, -4)
	s.Union(SetOf(core.SparseRow{{Index: 3, Value: 2}}))
	s.Union(nil)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(-4))
}

func TestSet_IgnoresIndicesBeyondBitmap(t *testing.T) {
	huge := math.MaxUint32 + 2 // 截断为 uint32 后等于 1

	s := NewSet(huge)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(1))
	assert.False(t, s.Contains(huge))

	s = SetOf(core.SparseRow{{Index: 1, Value: 1}})
	assert.True(t, s.Contains(1))
	assert.False(t, s.Contains(huge))
	assert.True(t, Blacklist(1)(huge))
	assert.False(t, NotSeen(core.SparseRow{{Index: 1, Value: 1}})(1))
}

func TestFilterNode(t *testing.T) {
	ctx := context.Background()
	prefs, err := core.NewSparseMatrix([]core.SparseRow{
		{{Index: 0, Value: 1}, {Index: 1, Value: 1}},
	}, 4)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	defer mem.Close()
	adapter := NewStoreAdapter(mem)
	require.NoError(t, adapter.PutBlacklist(ctx, "bl", []int{2}))
	require.NoError(t, adapter.PutBlacklist(ctx, "user:block:u1", []int{3}))

	exprFilter, err := NewExprFilter("item.score < 0.1", false)
	require.NoError(t, err)

	node := &FilterNode{
		Filters: []Filter{
			NewSeenFilter(prefs),
			NewBlacklistFilter(nil, adapter, "bl"),
			NewUserBlockFilter(adapter, ""),
			exprFilter,
		},
		Logger: zerolog.Nop(),
	}

	items := []*core.Item{
		core.NewItem(0, 0.9), // seen
		core.NewItem(1, 0.9), // seen
		core.NewItem(2, 0.9), // blacklist
		core.NewItem(3, 0.9), // user block
		core.NewItem(4, 0.05),
		core.NewItem(5, 0.5),
		nil,
	}
	rctx := core.NewRecommendContext(0, "u1")

	out, err := node.Process(ctx, rctx, items)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, core.Indices(out))

	lbl, ok := items[2].Labels["filtered"]
	require.True(t, ok)
	assert.Equal(t, utils.Label{Value: "true", Source: "filter.blacklist"}, lbl)
}

func TestSeenFilter_UnknownUser(t *testing.T) {
	prefs, err := core.NewSparseMatrix([]core.SparseRow{{{Index: 0, Value: 1}}}, 1)
	require.NoError(t, err)

	f := NewSeenFilter(prefs)
	drop, err := f.ShouldFilter(context.Background(), core.NewRecommendContext(-1, ""), core.NewItem(0, 1))
	require.NoError(t, err)
	assert.False(t, drop)
}

func TestExprFilter_Invert(t *testing.T) {
	f, err := NewExprFilter(`item.index == 1`, true)
	require.NoError(t, err)

	drop, err := f.ShouldFilter(context.Background(), nil, core.NewItem(1, 0))
	require.NoError(t, err)
	assert.False(t, drop)

	drop, err = f.ShouldFilter(context.Background(), nil, core.NewItem(2, 0))
	require.NoError(t, err)
	assert.True(t, drop)

	_, err = NewExprFilter("item.index ==", false)
	assert.True(t, core.IsConfigError(err))
}

func TestPredicateFilter(t *testing.T) {
	f := &PredicateFilter{Predicate: Blacklist(1)}
	assert.Equal(t, "filter.predicate", f.Name())

	drop, err := f.ShouldFilter(context.Background(), nil, core.NewItem(1, 0))
	require.NoError(t, err)
	assert.True(t, drop)
}

type countingBlacklist struct {
	calls   int
	indices []int
	err     error
}

func (s *countingBlacklist) GetBlacklist(context.Context, string) ([]int, error) {
	s.calls++
	return s.indices, s.err
}

func TestFilterNode_PreparesOncePerRequest(t *testing.T) {
	src := &countingBlacklist{indices: []int{1, 3}}
	node := &FilterNode{
		Filters: []Filter{&BlacklistFilter{Items: NewSet(0), Store: src, Key: "bl"}},
		Logger:  zerolog.Nop(),
	}
	items := []*core.Item{core.NewItem(0, 1), core.NewItem(1, 1), core.NewItem(2, 1), core.NewItem(3, 1), core.NewItem(4, 1)}

	out, err := node.Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, core.Indices(out))
	assert.Equal(t, 1, src.calls)
}

func TestBlacklistFilter_StoreFailureKeepsMemoryList(t *testing.T) {
	src := &countingBlacklist{err: assert.AnError}
	node := &FilterNode{
		Filters: []Filter{&BlacklistFilter{Items: NewSet(0), Store: src, Key: "bl"}},
		Logger:  zerolog.Nop(),
	}
	out, err := node.Process(context.Background(), nil, []*core.Item{core.NewItem(0, 1), core.NewItem(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, core.Indices(out))
}

func TestUserBlockFilter_Anonymous(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	f := NewUserBlockFilter(NewStoreAdapter(mem), "")

	drop, err := f.ShouldFilter(context.Background(), core.NewRecommendContext(0, ""), core.NewItem(3, 1))
	require.NoError(t, err)
	assert.False(t, drop)

	// 没有拉黑列表的用户
	drop, err = f.ShouldFilter(context.Background(), core.NewRecommendContext(0, "u9"), core.NewItem(3, 1))
	require.NoError(t, err)
	assert.False(t, drop)
}
