package writer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		RunID:      "run-1",
		Timestamp:  time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		StoreSize:  3,
		Evicted:    2,
		Buffer:     model.BufferStats{Capacity: 8, Ready: 1, Appended: 6, Consumed: 5},
		Stats:      model.WindowStats{Feature: "rate", Window: 3, Count: 3, Avg: 2},
		IndexSizes: map[string]int{"avl": 3, "cuckoo": 3},
		Cuckoo:     model.CuckooUsage{CapacityPerTable: 4, Size: 3},
	}
}

func TestGobWriterRoundTrip(t *testing.T) {
	root := t.TempDir()
	w := NewGobWriter(root, time.Second, nil)
	assert.Equal(t, time.Second, w.GetInterval())

	snap := sampleSnapshot()
	require.NoError(t, w.Write(snap))

	dir := filepath.Join(root, "2024-05-06_07-08-09")
	got, err := ReadSnapshot(filepath.Join(dir, "snapshot.gob"))
	require.NoError(t, err)
	assert.Equal(t, snap.RunID, got.RunID)
	assert.True(t, snap.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, snap.IndexSizes, got.IndexSizes)
	assert.Equal(t, snap.Stats, got.Stats)

	raw, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, 3, summary.StoreSize)
	assert.Equal(t, "rate", summary.Feature)
	assert.Equal(t, 1, summary.BufferReady)
}

func TestGobWriterSkipsEmptyStore(t *testing.T) {
	root := t.TempDir()
	w := NewGobWriter(root, time.Second, nil)
	require.NoError(t, w.Write(&model.Snapshot{Timestamp: time.Now()}))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGobWriterRegistered(t *testing.T) {
	writers := factory.CreateWriters([]config.WriterDef{{
		Type:             "gob",
		Enabled:          true,
		SnapshotInterval: "5s",
		Gob:              config.GobConfig{RootPath: t.TempDir()},
	}}, nil)
	require.Len(t, writers, 1)
	assert.Equal(t, 5*time.Second, writers[0].GetInterval())
}
