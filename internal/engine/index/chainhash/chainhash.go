// Package chainhash implements the separate-chaining hash table index.
package chainhash

import (
	"encoding/binary"
	"log/slog"

	"github.com/cespare/xxhash/v2"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

// DefaultBuckets is the bucket count used when none is configured.
const DefaultBuckets = 1024

func init() {
	factory.RegisterIndex(model.TagChainHash.String(), func(cfg config.IndexConfig, logger *slog.Logger) (model.Index, error) {
		return New(cfg.ChainBuckets, logger), nil
	})
}

// Table is a fixed-size hash table whose buckets are slices of Refs.
type Table struct {
	buckets [][]model.Ref
	size    int
	log     *slog.Logger
}

// New returns an empty table with the given number of buckets.
func New(buckets int, logger *slog.Logger) *Table {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		buckets: make([][]model.Ref, buckets),
		log:     logger.With("component", "index", "index", model.TagChainHash.String()),
	}
}

func (t *Table) Tag() model.IndexTag { return model.TagChainHash }
func (t *Table) Name() string        { return model.TagChainHash.String() }
func (t *Table) Len() int            { return t.size }

func (t *Table) bucket(id uint32) int {
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], id)
	return int(xxhash.Sum64(key[:]) % uint64(len(t.buckets)))
}

// Insert adds ref or replaces the Ref stored under the same ID.
func (t *Table) Insert(ref model.Ref) bool {
	if !ref.Valid() {
		t.log.Warn("rejecting invalid ref", "id", ref.ID)
		return false
	}
	b := t.bucket(ref.ID)
	chain := t.buckets[b]
	for i := range chain {
		if chain[i].ID == ref.ID {
			chain[i] = ref
			return true
		}
	}
	t.buckets[b] = append(chain, ref)
	t.size++
	return true
}

// Find returns the Ref stored for id.
func (t *Table) Find(id uint32) (model.Ref, bool) {
	for _, ref := range t.buckets[t.bucket(id)] {
		if ref.ID == id {
			return ref, true
		}
	}
	return model.Ref{}, false
}

// Remove deletes id from its chain.
func (t *Table) Remove(id uint32) bool {
	b := t.bucket(id)
	chain := t.buckets[b]
	for i := range chain {
		if chain[i].ID != id {
			continue
		}
		last := len(chain) - 1
		chain[i] = chain[last]
		chain[last] = model.Ref{}
		if last == 0 {
			t.buckets[b] = nil
		} else {
			t.buckets[b] = chain[:last]
		}
		t.size--
		return true
	}
	return false
}

// Telemetry reports bucket occupancy. A collision is an item that shares its
// bucket with an earlier one, so Collisions = Items - UsedBuckets.
func (t *Table) Telemetry() model.ChainStats {
	st := model.ChainStats{Buckets: len(t.buckets), Items: t.size}
	for _, chain := range t.buckets {
		if len(chain) == 0 {
			continue
		}
		st.UsedBuckets++
		st.MaxChain = max(st.MaxChain, len(chain))
	}
	st.Collisions = st.Items - st.UsedBuckets
	st.LoadFactor = float64(st.Items) / float64(st.Buckets)
	if st.Items > 0 {
		st.CollisionRate = float64(st.Collisions) / float64(st.Items)
	}
	return st
}
