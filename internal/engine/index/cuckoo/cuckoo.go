// Package cuckoo implements the two-table cuckoo hash index.
package cuckoo

import (
	"log/slog"
	"math/bits"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
)

// DefaultCapacity is the per-table slot count used when none is configured.
const DefaultCapacity = 101

func init() {
	factory.RegisterIndex(model.TagCuckoo.String(), func(cfg config.IndexConfig, logger *slog.Logger) (model.Index, error) {
		return New(cfg.CuckooCapacity, logger), nil
	})
}

// Table keeps every ID in one of two candidate slots, t1[h1(id)] or
// t2[h2(id)]. An empty slot holds the zero Ref.
type Table struct {
	t1, t2   []model.Ref
	capacity int
	maxLoop  int
	size     int
	rehashes int
	log      *slog.Logger
}

// New returns an empty table with capacity slots per table.
func New(capacity int, logger *slog.Logger) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{log: logger.With("component", "index", "index", model.TagCuckoo.String())}
	t.reset(capacity)
	return t
}

func (t *Table) reset(capacity int) {
	t.capacity = capacity
	t.t1 = make([]model.Ref, capacity)
	t.t2 = make([]model.Ref, capacity)
	t.maxLoop = bits.Len(uint(capacity)) // floor(log2(capacity)) + 1
}

func (t *Table) Tag() model.IndexTag { return model.TagCuckoo }
func (t *Table) Name() string        { return model.TagCuckoo.String() }
func (t *Table) Len() int            { return t.size }

// Capacity returns the slot count of each table.
func (t *Table) Capacity() int { return t.capacity }

// Rehashes returns how many times the table has grown.
func (t *Table) Rehashes() int { return t.rehashes }

func (t *Table) h1(id uint32) int {
	return int(uint64(id) % uint64(t.capacity))
}

func (t *Table) h2(id uint32) int {
	c := uint64(t.capacity)
	return int((uint64(id) / c) % c)
}

// Insert adds ref or replaces the Ref stored under the same ID.
func (t *Table) Insert(ref model.Ref) bool {
	if !ref.Valid() {
		t.log.Warn("rejecting invalid ref", "id", ref.ID)
		return false
	}
	if i := t.h1(ref.ID); t.t1[i].Valid() && t.t1[i].ID == ref.ID {
		t.t1[i] = ref
		return true
	}
	if i := t.h2(ref.ID); t.t2[i].Valid() && t.t2[i].ID == ref.ID {
		t.t2[i] = ref
		return true
	}
	if homeless, ok := t.place(ref); !ok {
		t.rehash(homeless)
	}
	t.size++
	return true
}

// place runs the displacement loop for at most maxLoop rounds. On failure it
// returns the Ref left without a slot, which may differ from ref.
func (t *Table) place(ref model.Ref) (model.Ref, bool) {
	cur := ref
	for range t.maxLoop {
		i := t.h1(cur.ID)
		if !t.t1[i].Valid() {
			t.t1[i] = cur
			return model.Ref{}, true
		}
		cur, t.t1[i] = t.t1[i], cur

		j := t.h2(cur.ID)
		if !t.t2[j].Valid() {
			t.t2[j] = cur
			return model.Ref{}, true
		}
		cur, t.t2[j] = t.t2[j], cur
	}
	return cur, false
}

// rehash grows both tables to 2*capacity+1 and re-inserts every stored Ref
// plus pending, growing again until all of them fit.
func (t *Table) rehash(pending model.Ref) {
	items := make([]model.Ref, 0, t.size+1)
	for _, tbl := range [][]model.Ref{t.t1, t.t2} {
		for _, ref := range tbl {
			if ref.Valid() {
				items = append(items, ref)
			}
		}
	}
	items = append(items, pending)

	capacity := t.capacity
	for {
		capacity = 2*capacity + 1
		t.reset(capacity)
		t.rehashes++
		metrics.CuckooRehashes.Inc()
		t.log.Info("rehashing cuckoo table", "capacity", capacity, "items", len(items))

		fits := true
		for _, ref := range items {
			if _, ok := t.place(ref); !ok {
				fits = false
				break
			}
		}
		if fits {
			return
		}
	}
}

// Find returns the Ref stored for id.
func (t *Table) Find(id uint32) (model.Ref, bool) {
	if ref := t.t1[t.h1(id)]; ref.Valid() && ref.ID == id {
		return ref, true
	}
	if ref := t.t2[t.h2(id)]; ref.Valid() && ref.ID == id {
		return ref, true
	}
	return model.Ref{}, false
}

// Remove clears the slot holding id.
func (t *Table) Remove(id uint32) bool {
	if i := t.h1(id); t.t1[i].Valid() && t.t1[i].ID == id {
		t.t1[i] = model.Ref{}
		t.size--
		return true
	}
	if i := t.h2(id); t.t2[i].Valid() && t.t2[i].ID == id {
		t.t2[i] = model.Ref{}
		t.size--
		return true
	}
	return false
}

// Usage reports per-table occupancy and the overall load factor.
func (t *Table) Usage() model.CuckooUsage {
	var used1, used2 int
	for i := range t.capacity {
		if t.t1[i].Valid() {
			used1++
		}
		if t.t2[i].Valid() {
			used2++
		}
	}
	total := 2 * t.capacity
	return model.CuckooUsage{
		CapacityPerTable: t.capacity,
		TotalCapacity:    total,
		Size:             t.size,
		Table1Percent:    100 * float64(used1) / float64(t.capacity),
		Table2Percent:    100 * float64(used2) / float64(t.capacity),
		LoadFactor:       float64(t.size) / float64(total),
		MaxLoop:          t.maxLoop,
		Rehashes:         t.rehashes,
	}
}
