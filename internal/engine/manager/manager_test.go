package manager

import (
	"context"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/category"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Buffer.Capacity = 64
	cfg.Store = config.StoreConfig{Capacity: 50, EvictThreshold: 40, EvictBatch: 10}
	cfg.Indexes.CuckooCapacity = 7
	cfg.Indexes.ChainBuckets = 16
	cfg.Indexes.SkipListSeed = 1
	cfg.Consumer.PollInterval = "5ms"
	return cfg
}

func start(t *testing.T, cfg *config.Config) *Manager {
	t.Helper()
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	m.Start(context.Background())
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func synth(from, n int, rng *rand.Rand) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Synthesize(uint32(from+i), rng)
	}
	return out
}

// feed appends in buffer-sized chunks and waits for each chunk to be consumed.
func feed(t *testing.T, m *Manager, recs []model.Record) {
	t.Helper()
	ctx := context.Background()
	for len(recs) > 0 {
		n := min(16, len(recs))
		accepted, dropped := m.AppendBatch(recs[:n])
		require.Equal(t, n, accepted)
		require.Zero(t, dropped)
		_, err := m.Diagnostics(ctx)
		require.NoError(t, err)
		recs = recs[n:]
	}
}

func TestFindThroughEveryIndex(t *testing.T) {
	m := start(t, testConfig())
	ctx := context.Background()
	recs := synth(1, 30, rand.New(rand.NewPCG(1, 2)))
	feed(t, m, recs)

	for _, tag := range model.AllTags() {
		for _, want := range recs {
			got, ok, err := m.Find(ctx, tag, want.ID)
			require.NoError(t, err)
			require.True(t, ok, "%s id %d", tag, want.ID)
			require.Equal(t, want, got)
		}
		_, ok, err := m.Find(ctx, tag, 9999)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	_, _, err := m.Find(ctx, model.IndexTag(42), 1)
	assert.ErrorIs(t, err, factory.ErrUnknownIndex)
}

func checkEviction(t *testing.T, cfg *config.Config) {
	m := start(t, cfg)
	ctx := context.Background()
	const total = 200
	recs := synth(1, total, rand.New(rand.NewPCG(3, 4)))
	feed(t, m, recs)

	d, err := m.Diagnostics(ctx)
	require.NoError(t, err)
	assert.Less(t, d.StoreSize, cfg.Store.EvictThreshold)
	assert.Equal(t, uint64(total), d.Evicted+uint64(d.StoreSize))
	for name, n := range d.IndexSizes {
		assert.Equal(t, d.StoreSize, n, name)
	}
	require.NoError(t, m.Consistency(ctx))

	oldestLive := uint32(total - d.StoreSize + 1)
	for _, tag := range model.AllTags() {
		for id := uint32(1); id < oldestLive; id++ {
			_, ok, err := m.Find(ctx, tag, id)
			require.NoError(t, err)
			require.False(t, ok, "%s still holds evicted record %d", tag, id)
		}
		_, ok, err := m.Find(ctx, tag, oldestLive)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// Neither the aggregate nor any category posting may reach an evicted id.
	var (
		inAggregate []uint32
		inCategory  []uint32
		postings    = map[string]int{}
		catErr      error
	)
	require.NoError(t, m.do(ctx, func() {
		for id := uint32(1); id < oldestLive; id++ {
			if _, ok := m.aggregate.Find(id); ok {
				inAggregate = append(inAggregate, id)
			}
		}
		for _, attr := range category.Attributes() {
			dist, err := m.category.Distribution(attr.String())
			if err != nil {
				catErr = err
				return
			}
			for value, n := range dist {
				postings[attr.String()] += n
				refs, err := m.category.Lookup(attr.String(), value)
				if err != nil {
					catErr = err
					return
				}
				for _, ref := range refs {
					if ref.ID < oldestLive {
						inCategory = append(inCategory, ref.ID)
					}
				}
			}
		}
	}))
	require.NoError(t, catErr)
	assert.Empty(t, inAggregate, "aggregate holds evicted records")
	assert.Empty(t, inCategory, "category postings hold evicted records")
	for _, attr := range category.Attributes() {
		assert.Equal(t, d.StoreSize, postings[attr.String()], "%s postings", attr)
	}

	live := recs[total-d.StoreSize:]
	var want []uint32
	for _, r := range live {
		if r.Label {
			want = append(want, r.ID)
		}
	}
	got, err := m.Lookup(ctx, "label", "attack")
	require.NoError(t, err)
	assert.Equal(t, len(want), len(got))
	if len(want) > 0 {
		assert.Equal(t, want, got)
	}
}

func TestEvictionRebuildMode(t *testing.T) {
	checkEviction(t, testConfig())
}

func TestEvictionIncrementalMode(t *testing.T) {
	cfg := testConfig()
	cfg.Category.Mode = "incremental"
	checkEviction(t, cfg)
}

func TestDuplicateIDSkipped(t *testing.T) {
	m := start(t, testConfig())
	ctx := context.Background()
	feed(t, m, []model.Record{{ID: 5, Rate: 1}, {ID: 5, Rate: 2}, {ID: 6, Rate: 3}})

	d, err := m.Diagnostics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.StoreSize)
	rec, ok, err := m.Find(ctx, model.TagCuckoo, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float32(1), rec.Rate)
	require.NoError(t, m.Consistency(ctx))
}

func TestStatAndHistogram(t *testing.T) {
	m := start(t, testConfig())
	ctx := context.Background()
	feed(t, m, []model.Record{{ID: 1, Rate: 10}, {ID: 2, Rate: 1}, {ID: 3, Rate: 2}, {ID: 4, Rate: 3}, {ID: 5, Rate: 4}})

	st, err := m.Stat(ctx, "rate", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 2.5, st.Avg, 1e-9)
	assert.InDelta(t, 2.5, st.Median, 1e-9)

	_, err = m.Stat(ctx, "colour", 4)
	assert.ErrorIs(t, err, model.ErrUnknownFeature)

	bins, err := m.Histogram(ctx, "rate", 0, 3)
	require.NoError(t, err)
	require.Len(t, bins, 3)
	assert.Equal(t, 1, bins[2].Count)
	assert.Equal(t, 5, bins[0].Count+bins[1].Count+bins[2].Count)
}

func TestForcedEvict(t *testing.T) {
	m := start(t, testConfig())
	ctx := context.Background()
	feed(t, m, synth(100, 12, rand.New(rand.NewPCG(5, 6))))

	ids, err := m.Evict(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 101, 102, 103, 104}, ids)

	ids, err = m.Evict(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
	d, err := m.Diagnostics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, d.StoreSize)

	ids, err = m.Evict(ctx, m.EvictBatch())
	require.NoError(t, err)
	assert.Len(t, ids, 7)

	ids, err = m.Evict(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, ids)
	require.NoError(t, m.Consistency(ctx))
}

func TestQueriesAfterStop(t *testing.T) {
	m, err := NewManager(testConfig(), nil)
	require.NoError(t, err)
	m.Start(context.Background())
	require.NoError(t, m.Stop())

	_, err = m.Diagnostics(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestQueriesBeforeStart(t *testing.T) {
	m, err := NewManager(testConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, err = m.Diagnostics(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = m.Evict(ctx, 1)
	assert.ErrorIs(t, err, ErrNotStarted)
	require.NoError(t, m.Stop())
}

func TestStopWritesFinalSnapshot(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig()
	cfg.Writers = []config.WriterDef{{
		Type:             "gob",
		Enabled:          true,
		SnapshotInterval: "1h",
		Gob:              config.GobConfig{RootPath: root},
	}}
	m, err := NewManager(cfg, nil)
	require.NoError(t, err)
	m.Start(context.Background())
	feed(t, m, synth(1, 10, rand.New(rand.NewPCG(7, 8))))

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, snap.StoreSize)
	assert.Equal(t, m.RunID(), snap.RunID)
	assert.Equal(t, 10, snap.IndexSizes["avl"])
	assert.Equal(t, 10, snap.Cuckoo.Size)

	require.NoError(t, m.Stop())
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
