package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/knnkit/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"b": []byte("2"), "c": []byte("3")}))

	got, err := s.BatchGet(ctx, []string{"a", "b", "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.True(t, core.IsStoreNotFound(err))

	assert.NoError(t, s.Close())
}

func TestMemoryStore_KeysAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{
		"cf:nb:2":  []byte("x"),
		"cf:nb:10": []byte("x"),
		"cf:users": []byte("x"),
		"cg:nb:1":  []byte("x"),
	}))
	keys, err := s.Keys(ctx, "cf:nb:")
	require.NoError(t, err)
	assert.Equal(t, []string{"cf:nb:10", "cf:nb:2"}, keys)

	require.NoError(t, s.Set(ctx, "tmp", []byte("1"), 1))
	_, err = s.Get(ctx, "tmp")
	require.NoError(t, err)

	s.evict(time.Now().Add(2 * time.Second))
	keys, err = s.Keys(ctx, "tmp")
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, err = s.Get(ctx, "cf:users")
	assert.NoError(t, err)
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `cf\*x\?`, globEscape("cf*x?"))
	assert.Equal(t, "cf:nb:", globEscape("cf:nb:"))
}

func TestBuildPreferences(t *testing.T) {
	prefs, err := BuildPreferences([]Interaction{
		{"u1", "i2", 1},
		{"u1", "i1", 2},
		{"u2", "i1", 1},
		{"u1", "i2", 5},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, prefs.Users.Len())
	assert.Equal(t, 2, prefs.Items.Len())
	// i2 -> 0, i1 -> 1
	assert.Equal(t, core.SparseRow{{Index: 0, Value: 5}, {Index: 1, Value: 2}}, prefs.Matrix.Row(0))
	assert.Equal(t, core.SparseRow{{Index: 1, Value: 1}}, prefs.Matrix.Row(1))
}

func TestPreferenceAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	a := NewPreferenceAdapter(s, "")
	require.NoError(t, a.Save(ctx, []Interaction{
		{"u1", "b", 1},
		{"u1", "a", 1},
		{"u2", "a", 3},
	}))

	items, err := a.GetUserItems(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 3}, items)

	empty, err := a.GetUserItems(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	prefs, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, prefs.Matrix.NumRows())

	u1 := prefs.Users.MustIndex("u1")
	ia := prefs.Items.MustIndex("a")
	ib := prefs.Items.MustIndex("b")
	v, ok := prefs.Matrix.Row(u1).Get(ia)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.True(t, prefs.Matrix.Row(u1).Has(ib))
	assert.True(t, prefs.Matrix.Row(u1).Valid())
}

func TestPreferenceAdapter_EmptyStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	prefs, err := NewPreferenceAdapter(s, "x").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, prefs.Matrix.NumRows())
}
