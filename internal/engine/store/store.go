// Package store owns every admitted record and evicts them oldest first.
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
)

var (
	// ErrDuplicateID is returned when a live record already carries the ID.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrStoreFull is returned when admission would exceed the capacity.
	ErrStoreFull = errors.New("store is full")
)

// Store is the single owner of record storage. Records are boxed once on
// admission so the pointer handed out by Resolve stays valid until the
// record is evicted. Live records are always the contiguous tail
// slots[head:], because eviction only ever removes the oldest ones.
//
// Store is not safe for concurrent use.
type Store struct {
	capacity  int
	threshold int
	batch     int

	slots []*model.Record
	head  int          // first live slot
	base  model.Handle // handle of slots[0]
	byID  map[uint32]model.Handle

	evicted uint64
	log     *slog.Logger
}

// New validates cfg and returns an empty store.
func New(cfg config.StoreConfig, logger *slog.Logger) (*Store, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("store capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.EvictThreshold <= 0 || cfg.EvictThreshold > cfg.Capacity {
		return nil, fmt.Errorf("evict threshold %d outside (0, %d]", cfg.EvictThreshold, cfg.Capacity)
	}
	if cfg.EvictBatch < 1 {
		return nil, fmt.Errorf("evict batch must be at least 1, got %d", cfg.EvictBatch)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		capacity:  cfg.Capacity,
		threshold: cfg.EvictThreshold,
		batch:     cfg.EvictBatch,
		base:      1,
		byID:      make(map[uint32]model.Handle),
		log:       logger.With("component", "store"),
	}, nil
}

// Admit takes ownership of a copy of rec and returns its reference.
func (s *Store) Admit(rec model.Record) (model.Ref, error) {
	if h, ok := s.byID[rec.ID]; ok {
		metrics.StoreAdmitErrors.WithLabelValues("duplicate").Inc()
		return model.Ref{}, fmt.Errorf("%w: id %d already held at handle %d", ErrDuplicateID, rec.ID, h)
	}
	if s.Len() >= s.capacity {
		metrics.StoreAdmitErrors.WithLabelValues("full").Inc()
		return model.Ref{}, fmt.Errorf("%w: capacity %d", ErrStoreFull, s.capacity)
	}

	boxed := new(model.Record)
	*boxed = rec
	h := s.base + model.Handle(len(s.slots))
	s.slots = append(s.slots, boxed)
	s.byID[rec.ID] = h

	metrics.StoreAdmitted.Inc()
	metrics.StoreSize.Set(float64(s.Len()))
	return model.Ref{ID: rec.ID, Handle: h}, nil
}

// EvictOldest removes min(batch, Len) of the oldest records and returns their
// IDs in arrival order. A non-positive batch evicts nothing.
func (s *Store) EvictOldest(batch int) []uint32 {
	n := max(0, min(batch, s.Len()))
	out := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		rec := s.slots[s.head]
		out = append(out, rec.ID)
		delete(s.byID, rec.ID)
		s.slots[s.head] = nil
		s.head++
	}
	s.evicted += uint64(n)
	s.compact()

	if n > 0 {
		metrics.StoreEvicted.Add(float64(n))
		metrics.StoreSize.Set(float64(s.Len()))
		s.log.Debug("evicted oldest records", "count", n, "remaining", s.Len())
	}
	return out
}

// compact drops the evicted prefix once it makes up more than half of slots.
func (s *Store) compact() {
	if s.head == 0 || s.head*2 <= len(s.slots) {
		return
	}
	live := len(s.slots) - s.head
	next := make([]*model.Record, live, max(live*2, 16))
	copy(next, s.slots[s.head:])
	s.base += model.Handle(s.head)
	s.slots = next
	s.head = 0
}

// NeedsEviction reports whether the live count reached the threshold.
func (s *Store) NeedsEviction() bool {
	return s.Len() >= s.threshold
}

// Resolve returns the record behind ref while it is live.
func (s *Store) Resolve(ref model.Ref) (*model.Record, bool) {
	if !ref.Valid() {
		return nil, false
	}
	rec, ok := s.At(ref.Handle)
	if !ok || rec.ID != ref.ID {
		return nil, false
	}
	return rec, true
}

// At returns the live record admitted under handle h.
func (s *Store) At(h model.Handle) (*model.Record, bool) {
	if h < s.base {
		return nil, false
	}
	i := int(h - s.base)
	if i < s.head || i >= len(s.slots) {
		return nil, false
	}
	return s.slots[i], true
}

// Lookup returns the reference of the live record with the given ID.
func (s *Store) Lookup(id uint32) (model.Ref, bool) {
	h, ok := s.byID[id]
	if !ok {
		return model.Ref{}, false
	}
	return model.Ref{ID: id, Handle: h}, true
}

// Get returns the live record with the given ID.
func (s *Store) Get(id uint32) (*model.Record, bool) {
	ref, ok := s.Lookup(id)
	if !ok {
		return nil, false
	}
	return s.Resolve(ref)
}

// Len returns the number of live records.
func (s *Store) Len() int {
	return len(s.slots) - s.head
}

// Capacity returns the admission limit.
func (s *Store) Capacity() int { return s.capacity }

// Threshold returns the live count at which eviction starts.
func (s *Store) Threshold() int { return s.threshold }

// Batch returns the configured eviction batch size.
func (s *Store) Batch() int { return s.batch }

// Evicted returns the total number of records evicted so far.
func (s *Store) Evicted() uint64 { return s.evicted }

// Oldest returns the handle of the oldest live record, or zero when empty.
func (s *Store) Oldest() model.Handle {
	if s.Len() == 0 {
		return 0
	}
	return s.base + model.Handle(s.head)
}

// Newest returns the handle of the newest live record, or zero when empty.
func (s *Store) Newest() model.Handle {
	if s.Len() == 0 {
		return 0
	}
	return s.base + model.Handle(len(s.slots)-1)
}

// Ascend calls fn for every live record in arrival order until fn returns false.
func (s *Store) Ascend(fn func(ref model.Ref, rec *model.Record) bool) {
	for i := s.head; i < len(s.slots); i++ {
		rec := s.slots[i]
		if !fn(model.Ref{ID: rec.ID, Handle: s.base + model.Handle(i)}, rec) {
			return
		}
	}
}
