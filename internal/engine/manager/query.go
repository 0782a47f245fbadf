package manager

import (
	"context"
	"fmt"
	"time"

	"FlowSpectra/internal/engine/aggregate"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
)

// Find looks id up through the index variant tag and returns a copy of the
// record.
func (m *Manager) Find(ctx context.Context, tag model.IndexTag, id uint32) (rec model.Record, found bool, err error) {
	idx, ok := m.byTag[tag]
	if !ok {
		return model.Record{}, false, fmt.Errorf("%w: tag %d", factory.ErrUnknownIndex, tag)
	}
	err = m.do(ctx, func() {
		ref, ok := idx.Find(id)
		if !ok {
			return
		}
		if r, ok := m.store.Resolve(ref); ok {
			rec, found = *r, true
		}
	})
	return rec, found, err
}

// Stat summarizes feature over the newest window records.
func (m *Manager) Stat(ctx context.Context, feature string, window int) (model.WindowStats, error) {
	f, err := model.ParseFeature(feature)
	if err != nil {
		return model.WindowStats{}, err
	}
	var st model.WindowStats
	err = m.do(ctx, func() { st = m.aggregate.Stat(f, window) })
	return st, err
}

// Histogram buckets feature over the newest window records.
func (m *Manager) Histogram(ctx context.Context, feature string, window, bins int) ([]aggregate.Bin, error) {
	f, err := model.ParseFeature(feature)
	if err != nil {
		return nil, err
	}
	var out []aggregate.Bin
	err = m.do(ctx, func() { out = m.aggregate.Histogram(f, window, bins) })
	return out, err
}

// Lookup returns the IDs of records whose attribute equals value, in
// insertion order.
func (m *Manager) Lookup(ctx context.Context, attr, value string) ([]uint32, error) {
	var (
		ids  []uint32
		qerr error
	)
	err := m.do(ctx, func() {
		refs, err := m.category.Lookup(attr, value)
		if err != nil {
			qerr = err
			return
		}
		ids = make([]uint32, len(refs))
		for i, r := range refs {
			ids[i] = r.ID
		}
	})
	if err != nil {
		return nil, err
	}
	return ids, qerr
}

// Distribution returns the record count per value of attr.
func (m *Manager) Distribution(ctx context.Context, attr string) (map[string]int, error) {
	var (
		out  map[string]int
		qerr error
	)
	if err := m.do(ctx, func() { out, qerr = m.category.Distribution(attr) }); err != nil {
		return nil, err
	}
	return out, qerr
}

// EvictBatch returns the configured eviction batch size.
func (m *Manager) EvictBatch() int { return m.store.Batch() }

// Evict forces an eviction of the min(batch, size) oldest records. A
// non-positive batch evicts nothing.
func (m *Manager) Evict(ctx context.Context, batch int) ([]uint32, error) {
	var ids []uint32
	err := m.do(ctx, func() { ids = m.evict(batch) })
	return ids, err
}

// Diagnostics describes the state of every component.
type Diagnostics struct {
	RunID          string             `json:"run_id"`
	Buffer         model.BufferStats  `json:"buffer"`
	StoreSize      int                `json:"store_size"`
	StoreCapacity  int                `json:"store_capacity"`
	EvictThreshold int                `json:"evict_threshold"`
	EvictBatch     int                `json:"evict_batch"`
	Evicted        uint64             `json:"evicted"`
	IndexSizes     map[string]int     `json:"index_sizes"`
	AggregateSize  int                `json:"aggregate_size"`
	AggregateTotal float64            `json:"aggregate_total"`
	CategorySize   int                `json:"category_size"`
	AVLHeight      int                `json:"avl_height,omitempty"`
	RBBlackHeight  int                `json:"rb_black_height,omitempty"`
	SkipListLevel  int                `json:"skiplist_level,omitempty"`
	Chain          *model.ChainStats  `json:"chain,omitempty"`
	Cuckoo         *model.CuckooUsage `json:"cuckoo,omitempty"`
}

// Diagnostics collects component statistics on the consumer goroutine.
func (m *Manager) Diagnostics(ctx context.Context) (Diagnostics, error) {
	var d Diagnostics
	err := m.do(ctx, func() { d = m.diagnostics() })
	return d, err
}

func (m *Manager) diagnostics() Diagnostics {
	d := Diagnostics{
		RunID:          m.runID,
		Buffer:         m.buffer.Stats(),
		StoreSize:      m.store.Len(),
		StoreCapacity:  m.store.Capacity(),
		EvictThreshold: m.store.Threshold(),
		EvictBatch:     m.store.Batch(),
		Evicted:        m.store.Evicted(),
		IndexSizes:     make(map[string]int, len(m.indexes)),
		AggregateSize:  m.aggregate.Len(),
		AggregateTotal: m.aggregate.Total(),
		CategorySize:   m.category.Len(),
	}
	for _, idx := range m.indexes {
		d.IndexSizes[idx.Name()] = idx.Len()
		switch v := idx.(type) {
		case interface{ Height() int }:
			d.AVLHeight = v.Height()
		case interface{ BlackHeight() int }:
			d.RBBlackHeight = v.BlackHeight()
		case interface{ Level() int }:
			d.SkipListLevel = v.Level()
		case interface{ Telemetry() model.ChainStats }:
			st := v.Telemetry()
			d.Chain = &st
		case interface{ Usage() model.CuckooUsage }:
			u := v.Usage()
			d.Cuckoo = &u
		}
	}
	return d
}

// Snapshot captures the state handed to writers.
func (m *Manager) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap *model.Snapshot
	err := m.do(ctx, func() { snap = m.snapshot() })
	return snap, err
}

func (m *Manager) snapshot() *model.Snapshot {
	d := m.diagnostics()
	snap := &model.Snapshot{
		RunID:      m.runID,
		Timestamp:  time.Now().UTC(),
		StoreSize:  d.StoreSize,
		Evicted:    d.Evicted,
		Buffer:     d.Buffer,
		Stats:      m.aggregate.Stat(m.aggregate.Feature(), m.window),
		IndexSizes: d.IndexSizes,
	}
	if d.Chain != nil {
		snap.Chain = *d.Chain
	}
	if d.Cuckoo != nil {
		snap.Cuckoo = *d.Cuckoo
	}
	return snap
}

func (m *Manager) runSnapshotter(ctx context.Context, w model.Writer) error {
	interval := w.GetInterval()
	if interval <= 0 {
		m.log.Warn("invalid writer interval, snapshotter will not run", "interval", interval.String())
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap, err := m.Snapshot(ctx)
			if err != nil {
				return nil
			}
			m.write(w, snap)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Manager) write(w model.Writer, snap *model.Snapshot) {
	name := fmt.Sprintf("%T", w)
	if err := w.Write(snap); err != nil {
		metrics.SnapshotWrites.WithLabelValues(name, "error").Inc()
		m.log.Error("error writing snapshot", "writer", name, "error", err)
		return
	}
	metrics.SnapshotWrites.WithLabelValues(name, "ok").Inc()
}
