package factory_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/config"
	_ "FlowSpectra/internal/engine/index/avl"
	_ "FlowSpectra/internal/engine/index/chainhash"
	_ "FlowSpectra/internal/engine/index/cuckoo"
	_ "FlowSpectra/internal/engine/index/rbtree"
	_ "FlowSpectra/internal/engine/index/skiplist"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

func allIndexes(t *testing.T) []model.Index {
	t.Helper()
	cfg := config.Default().Indexes
	cfg.CuckooCapacity = 5
	cfg.ChainBuckets = 32
	cfg.SkipListSeed = 77
	indexes, err := factory.CreateIndexes(cfg, nil)
	require.NoError(t, err)
	require.Len(t, indexes, 5)
	return indexes
}

func TestCreateIndexesAssignsStableTags(t *testing.T) {
	for i, idx := range allIndexes(t) {
		assert.Equal(t, model.IndexTag(i), idx.Tag())
		assert.Equal(t, idx.Tag().String(), idx.Name())
	}
}

func TestCreateIndexesRejectsUnknownAndDuplicates(t *testing.T) {
	cfg := config.Default().Indexes

	cfg.Enabled = []string{"avl", "btree"}
	_, err := factory.CreateIndexes(cfg, nil)
	assert.ErrorIs(t, err, factory.ErrUnknownIndex)

	cfg.Enabled = []string{"avl", "avl"}
	_, err = factory.CreateIndexes(cfg, nil)
	assert.Error(t, err)
}

// Every variant must answer every lookup identically after the same
// sequence of inserts, upserts and removes.
func TestCrossStructureEquivalence(t *testing.T) {
	indexes := allIndexes(t)
	rng := rand.New(rand.NewPCG(2024, 10))
	want := map[uint32]model.Ref{}

	for step := range 20000 {
		id := uint32(rng.IntN(3000))
		switch op := rng.IntN(10); {
		case op < 6:
			r := model.Ref{ID: id, Handle: model.Handle(step + 1)}
			for _, idx := range indexes {
				require.True(t, idx.Insert(r), "%s insert", idx.Name())
			}
			want[id] = r
		case op < 9:
			_, present := want[id]
			for _, idx := range indexes {
				require.Equal(t, present, idx.Remove(id), "%s remove %d at step %d", idx.Name(), id, step)
			}
			delete(want, id)
		default:
			r, present := want[id]
			for _, idx := range indexes {
				got, ok := idx.Find(id)
				require.Equal(t, present, ok, "%s find %d at step %d", idx.Name(), id, step)
				require.Equal(t, r, got, "%s find %d at step %d", idx.Name(), id, step)
			}
		}
	}

	for _, idx := range indexes {
		assert.Equal(t, len(want), idx.Len(), idx.Name())
	}
	for id := uint32(0); id < 3000; id++ {
		r, present := want[id]
		for _, idx := range indexes {
			got, ok := idx.Find(id)
			require.Equal(t, present, ok, "%s final find %d", idx.Name(), id)
			require.Equal(t, r, got)
		}
	}

	for _, idx := range indexes {
		assert.False(t, idx.Insert(model.Ref{ID: 1}), idx.Name())
	}
}

func TestCreateWritersSkipsDisabledAndUnknown(t *testing.T) {
	defs := []config.WriterDef{
		{Type: "gob", Enabled: false, SnapshotInterval: "1s"},
		{Type: "carrier-pigeon", Enabled: true, SnapshotInterval: "1s"},
		{Type: "gob", Enabled: true, SnapshotInterval: "not-a-duration"},
	}
	assert.Empty(t, factory.CreateWriters(defs, nil))
}
