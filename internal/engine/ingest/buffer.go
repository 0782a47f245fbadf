// Package ingest holds the bounded hand-off between the network producer
// and the processing consumer.
package ingest

import (
	"log/slog"
	"sync"

	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 30000

// Buffer is a fixed-capacity circular buffer with one writer and one reader.
// head, tail and ready move together under mu; the mutex is held only for
// the duration of a copy or a counter update.
type Buffer struct {
	mu    sync.Mutex
	slots []model.Record
	head  int // oldest unread slot
	tail  int // next write slot
	ready int // unread items, always <= len(slots)

	appended uint64
	dropped  uint64
	consumed uint64

	notify chan struct{}
	log    *slog.Logger
}

// NewBuffer creates a buffer holding up to capacity records.
func NewBuffer(capacity int, logger *slog.Logger) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		slots:  make([]model.Record, capacity),
		notify: make(chan struct{}, 1),
		log:    logger.With("component", "ingest"),
	}
}

// Capacity returns the number of slots.
func (b *Buffer) Capacity() int {
	return len(b.slots)
}

// AppendBatch copies as many items as fit starting at tail. Items beyond the
// free space are dropped and logged; the call never blocks on the reader.
func (b *Buffer) AppendBatch(items []model.Record) (accepted, dropped int) {
	if len(items) == 0 {
		return 0, 0
	}

	b.mu.Lock()
	capacity := len(b.slots)
	free := capacity - b.ready
	accepted = min(len(items), free)
	dropped = len(items) - accepted

	for i := 0; i < accepted; {
		n := copy(b.slots[b.tail:], items[i:accepted])
		i += n
		b.tail = (b.tail + n) % capacity
	}
	b.ready += accepted
	b.appended += uint64(accepted)
	b.dropped += uint64(dropped)
	head, tail, ready := b.head, b.tail, b.ready
	b.mu.Unlock()

	metrics.BufferAppended.Add(float64(accepted))
	metrics.BufferReady.Set(float64(ready))
	if dropped > 0 {
		metrics.BufferDropped.Add(float64(dropped))
		b.log.Warn("buffer full, dropping records",
			"dropped", dropped, "accepted", accepted, "head", head, "tail", tail, "ready", ready)
	}
	if accepted > 0 {
		select {
		case b.notify <- struct{}{}:
		default:
		}
	}
	return accepted, dropped
}

// TakeView returns the unread records starting at head, capped at the end of
// the backing array. A wrapped remainder is returned by the next call once
// this view has been consumed. The slice aliases the buffer and must be
// treated as read-only until MarkConsumed.
func (b *Buffer) TakeView() []model.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready == 0 {
		return nil
	}
	n := min(b.ready, len(b.slots)-b.head)
	return b.slots[b.head : b.head+n : b.head+n]
}

// MarkConsumed releases n records from head. Requests above ready are
// clamped to ready. It returns the number of records released.
func (b *Buffer) MarkConsumed(n int) int {
	if n <= 0 {
		return 0
	}
	b.mu.Lock()
	requested := n
	if n > b.ready {
		n = b.ready
	}
	b.head = (b.head + n) % len(b.slots)
	b.ready -= n
	b.consumed += uint64(n)
	ready := b.ready
	b.mu.Unlock()

	if requested != n {
		b.log.Warn("consume request exceeds ready records, clamping", "requested", requested, "consumed", n)
	}
	metrics.BufferReady.Set(float64(ready))
	return n
}

// Ready returns the number of unread records.
func (b *Buffer) Ready() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Notify is signalled after an append that accepted at least one record.
func (b *Buffer) Notify() <-chan struct{} {
	return b.notify
}

// Stats returns a consistent snapshot of the buffer counters.
func (b *Buffer) Stats() model.BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.BufferStats{
		Capacity: len(b.slots),
		Head:     b.head,
		Tail:     b.tail,
		Ready:    b.ready,
		Appended: b.appended,
		Dropped:  b.dropped,
		Consumed: b.consumed,
	}
}
