package rbtree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/model"
)

func ref(id uint32) model.Ref {
	return model.Ref{ID: id, Handle: model.Handle(id) + 1}
}

func TestInsertFixupCases(t *testing.T) {
	tr := New(nil)
	// Ascending, descending and zig-zag runs exercise every insert case.
	for _, id := range []uint32{10, 20, 30, 40, 50, 25, 24, 23, 5, 4, 3, 27, 26} {
		require.True(t, tr.Insert(ref(id)))
		require.NoError(t, tr.Verify(), "after inserting %d", id)
	}
	assert.Equal(t, 13, tr.Len())
	assert.Positive(t, tr.BlackHeight())
}

func TestRemoveFixupCases(t *testing.T) {
	tr := New(nil)
	for id := uint32(1); id <= 64; id++ {
		tr.Insert(ref(id))
	}
	for _, id := range []uint32{1, 64, 32, 16, 48, 2, 3, 63, 62, 33, 31, 40} {
		require.True(t, tr.Remove(id))
		require.NoError(t, tr.Verify(), "after removing %d", id)
		_, ok := tr.Find(id)
		assert.False(t, ok)
	}
	assert.Equal(t, 52, tr.Len())
	assert.False(t, tr.Remove(1))
}

func TestRemoveToEmpty(t *testing.T) {
	tr := New(nil)
	for id := uint32(1); id <= 10; id++ {
		tr.Insert(ref(id))
	}
	for id := uint32(10); id >= 1; id-- {
		require.True(t, tr.Remove(id))
		require.NoError(t, tr.Verify())
	}
	assert.Zero(t, tr.Len())
	assert.Zero(t, tr.BlackHeight())
}

func TestIndependentTrees(t *testing.T) {
	a, b := New(nil), New(nil)
	for id := uint32(1); id <= 20; id++ {
		a.Insert(ref(id))
		b.Insert(ref(id + 100))
	}
	for id := uint32(1); id <= 20; id += 2 {
		a.Remove(id)
	}
	require.NoError(t, a.Verify())
	require.NoError(t, b.Verify())
	assert.Equal(t, 20, b.Len())
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	tr := New(nil)
	want := map[uint32]model.Ref{}
	for i := range 6000 {
		id := uint32(rng.IntN(1000))
		if rng.IntN(2) == 0 {
			_, present := want[id]
			assert.Equal(t, present, tr.Remove(id))
			delete(want, id)
		} else {
			r := model.Ref{ID: id, Handle: model.Handle(i + 1)}
			tr.Insert(r)
			want[id] = r
		}
		if i%200 == 0 {
			require.NoError(t, tr.Verify(), "step %d", i)
		}
	}
	require.NoError(t, tr.Verify())
	assert.Equal(t, len(want), tr.Len())

	prev, seen := -1, 0
	tr.Ascend(func(r model.Ref) bool {
		require.Greater(t, int(r.ID), prev)
		require.Equal(t, want[r.ID], r)
		prev = int(r.ID)
		seen++
		return true
	})
	assert.Equal(t, len(want), seen)
}
