package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntities_AddIsStable(t *testing.T) {
	e := New()
	assert.Equal(t, 0, e.Add("u2"))
	assert.Equal(t, 1, e.Add("u1"))
	assert.Equal(t, 0, e.Add("u2"))
	assert.Equal(t, 2, e.Len())

	idx, ok := e.Index("u1")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	id, err := e.ID(0)
	require.NoError(t, err)
	assert.Equal(t, "u2", id)
}

func TestEntities_Unknown(t *testing.T) {
	e := FromIDs("a")
	_, ok := e.Index("b")
	assert.False(t, ok)
	assert.Equal(t, -1, e.MustIndex("b"))

	_, err := e.ID(5)
	assert.Error(t, err)
}

func TestEntities_IDsOrdered(t *testing.T) {
	e := FromIDs("c", "a", "b", "a")
	assert.Equal(t, []Pair{{"a", 1}, {"b", 2}, {"c", 0}}, e.IDs())
}
