package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/aggregate"
	"FlowSpectra/internal/engine/category"
	_ "FlowSpectra/internal/engine/index/avl"       // Registers the AVL index
	_ "FlowSpectra/internal/engine/index/chainhash" // Registers the chaining hash index
	_ "FlowSpectra/internal/engine/index/cuckoo"    // Registers the cuckoo hash index
	_ "FlowSpectra/internal/engine/index/rbtree"    // Registers the red-black index
	_ "FlowSpectra/internal/engine/index/skiplist"  // Registers the skip list index
	"FlowSpectra/internal/engine/ingest"
	"FlowSpectra/internal/engine/store"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
	_ "FlowSpectra/internal/writer" // Registers the gob and clickhouse writers
)

var (
	// ErrStopped is returned by queries issued after the consumer has exited.
	ErrStopped = errors.New("manager stopped")
	// ErrNotStarted is returned by queries issued before Start.
	ErrNotStarted = errors.New("manager not started")
)

type request struct {
	fn   func()
	done chan struct{}
}

// Manager owns the buffer, the store and every index. All index mutation
// and every query run on the single consumer goroutine; producers only touch
// the buffer.
type Manager struct {
	buffer    *ingest.Buffer
	store     *store.Store
	indexes   []model.Index
	byTag     map[model.IndexTag]model.Index
	aggregate *aggregate.Index
	category  *category.Index
	writers   []model.Writer

	incremental bool
	window      int
	poll        time.Duration
	runID       string

	started  atomic.Bool
	requests chan request
	done     chan struct{} // closed when the consumer exits
	cancel   context.CancelFunc
	group    *errgroup.Group
	log      *slog.Logger
}

// NewManager builds every component described by cfg.
func NewManager(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	poll, err := cfg.PollInterval()
	if err != nil {
		return nil, err
	}
	feature, err := model.ParseFeature(cfg.Aggregate.Feature)
	if err != nil {
		return nil, fmt.Errorf("invalid aggregate feature: %w", err)
	}
	st, err := store.New(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	indexes, err := factory.CreateIndexes(cfg.Indexes, logger)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		buffer:      ingest.NewBuffer(cfg.Buffer.Capacity, logger),
		store:       st,
		indexes:     indexes,
		byTag:       make(map[model.IndexTag]model.Index, len(indexes)),
		aggregate:   aggregate.New(st, feature, logger),
		category:    category.New(st, logger),
		writers:     factory.CreateWriters(cfg.Writers, logger),
		incremental: cfg.Category.Mode == "incremental",
		window:      cfg.Aggregate.Window,
		poll:        poll,
		runID:       uuid.NewString(),
		requests:    make(chan request),
		done:        make(chan struct{}),
		log:         logger.With("component", "manager"),
	}
	for _, idx := range indexes {
		m.byTag[idx.Tag()] = idx
	}
	return m, nil
}

// RunID identifies this process in every snapshot.
func (m *Manager) RunID() string { return m.runID }

// AppendBatch hands records to the ingestion buffer. It is safe to call from
// any goroutine and never blocks on the consumer.
func (m *Manager) AppendBatch(items []model.Record) (accepted, dropped int) {
	return m.buffer.AppendBatch(items)
}

// Start launches the consumer and one snapshotter per writer.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	m.group = g
	m.started.Store(true)

	g.Go(func() error { return m.runConsumer(gctx) })
	for _, w := range m.writers {
		g.Go(func() error { return m.runSnapshotter(gctx, w) })
		m.log.Info("started snapshotter", "interval", w.GetInterval().String())
	}
	m.log.Info("manager started", "indexes", len(m.indexes), "writers", len(m.writers), "run_id", m.runID)
}

// Stop cancels the goroutines, waits for them and writes a final snapshot to
// every writer.
func (m *Manager) Stop() error {
	m.log.Info("manager stopping")
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	m.cancel = nil
	err := m.group.Wait()

	if len(m.writers) > 0 {
		snap := m.snapshot()
		for _, w := range m.writers {
			m.write(w, snap)
		}
	}
	m.log.Info("manager stopped")
	return err
}

func (m *Manager) runConsumer(ctx context.Context) error {
	defer close(m.done)
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.pump()
			return nil
		case <-m.buffer.Notify():
			m.pump()
		case <-ticker.C:
			m.pump()
		case req := <-m.requests:
			m.pump()
			req.fn()
			close(req.done)
		}
	}
}

// do runs fn on the consumer goroutine after the buffer has been drained, so
// a query observes every record accepted before it was issued.
func (m *Manager) do(ctx context.Context, fn func()) error {
	if !m.started.Load() {
		return ErrNotStarted
	}
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case m.requests <- req:
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pump drains every contiguous view of the buffer into the store and the
// indexes, then evicts while the store is at or above its threshold.
func (m *Manager) pump() {
	processed := 0
	for {
		view := m.buffer.TakeView()
		if len(view) == 0 {
			break
		}
		for i := range view {
			if m.store.Len() >= m.store.Capacity() {
				m.evict(m.store.Batch())
			}
			m.admit(view[i])
		}
		m.buffer.MarkConsumed(len(view))
		processed += len(view)
	}
	for m.store.NeedsEviction() {
		m.evict(m.store.Batch())
	}
	if processed > 0 {
		m.updateGauges()
	}
}

func (m *Manager) admit(rec model.Record) {
	ref, err := m.store.Admit(rec)
	if err != nil {
		m.log.Warn("skipping record", "id", rec.ID, "error", err)
		return
	}
	boxed, _ := m.store.Resolve(ref)
	for _, idx := range m.indexes {
		idx.Insert(ref)
	}
	m.aggregate.Insert(ref)
	m.category.Add(ref, boxed)
}

// evict removes the batch oldest records from the store and then from every
// structure that references them.
func (m *Manager) evict(batch int) []uint32 {
	if batch <= 0 {
		return []uint32{}
	}
	start := time.Now()
	if m.incremental {
		n := 0
		m.store.Ascend(func(ref model.Ref, rec *model.Record) bool {
			if n >= batch {
				return false
			}
			m.category.Remove(ref, rec)
			n++
			return true
		})
	}

	ids := m.store.EvictOldest(batch)
	for _, id := range ids {
		for _, idx := range m.indexes {
			if !idx.Remove(id) {
				m.log.Error("evicted record missing from index", "id", id, "index", idx.Name())
			}
		}
		m.aggregate.Remove(id)
	}
	if !m.incremental {
		m.category.Rebuild()
	}

	metrics.EvictionDuration.Observe(float64(time.Since(start).Milliseconds()))
	m.updateGauges()
	m.log.Debug("evicted batch", "count", len(ids), "remaining", m.store.Len())
	return ids
}

func (m *Manager) updateGauges() {
	for _, idx := range m.indexes {
		metrics.IndexSize.WithLabelValues(idx.Name()).Set(float64(idx.Len()))
	}
}
