// Package aggregate maintains running sums over records in arrival order and
// answers window statistics over the most recent of them.
package aggregate

import (
	"log/slog"
	"math"
	"slices"

	"FlowSpectra/internal/model"
)

// initialSpan is the handle range covered by a fresh tree. The range doubles
// whenever a handle falls outside it.
const initialSpan = 1 << 20

// node covers handles [lo, hi). Leaves have hi-lo == 1 and carry the record
// reference together with its cached feature value.
type node struct {
	lo, hi      uint64
	sum         float64
	count       int
	left, right *node

	ref   model.Ref
	value float64
}

func (n *node) leaf() bool { return n.hi-n.lo == 1 }

// finite maps NaN and the infinities to 0 so they never reach a cached sum.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (n *node) pull() {
	n.sum, n.count = 0, 0
	for _, c := range []*node{n.left, n.right} {
		if c != nil {
			n.sum += c.sum
			n.count += c.count
		}
	}
}

// Index is a dynamic segment tree keyed by arrival handle.
// It is not safe for concurrent use.
type Index struct {
	root     *node
	feature  model.Feature
	resolver model.Resolver
	byID     map[uint32]model.Handle
	log      *slog.Logger
}

// New returns an empty index caching feature, resolving records through r.
func New(r model.Resolver, feature model.Feature, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		root:     &node{lo: 0, hi: initialSpan},
		feature:  feature,
		resolver: r,
		byID:     make(map[uint32]model.Handle),
		log:      logger.With("component", "aggregate", "feature", feature.String()),
	}
}

// Feature returns the feature whose sums the tree maintains.
func (x *Index) Feature() model.Feature { return x.feature }

// Len returns the number of records in the tree.
func (x *Index) Len() int { return x.root.count }

// Total returns the sum of the cached feature over every record. Non-finite
// values count as 0.
func (x *Index) Total() float64 { return x.root.sum }

// Insert adds the record behind ref. An ID already present under another
// handle is moved to the new one.
func (x *Index) Insert(ref model.Ref) bool {
	if !ref.Valid() {
		x.log.Warn("rejecting invalid ref", "id", ref.ID)
		return false
	}
	rec, ok := x.resolver.Resolve(ref)
	if !ok {
		x.log.Warn("ref does not resolve, skipping", "id", ref.ID, "handle", uint64(ref.Handle))
		return false
	}
	if h, ok := x.byID[ref.ID]; ok && h != ref.Handle {
		x.removeSlot(uint64(h))
	}

	slot := uint64(ref.Handle)
	for slot >= x.root.hi {
		grown := &node{lo: 0, hi: x.root.hi * 2, left: x.root}
		grown.pull()
		x.root = grown
	}
	insert(x.root, slot, ref, x.feature.Value(rec))
	x.byID[ref.ID] = ref.Handle
	return true
}

func insert(n *node, slot uint64, ref model.Ref, v float64) {
	if n.leaf() {
		n.ref, n.value = ref, v
		n.sum, n.count = finite(v), 1
		return
	}
	mid := n.lo + (n.hi-n.lo)/2
	if slot < mid {
		if n.left == nil {
			n.left = &node{lo: n.lo, hi: mid}
		}
		insert(n.left, slot, ref, v)
	} else {
		if n.right == nil {
			n.right = &node{lo: mid, hi: n.hi}
		}
		insert(n.right, slot, ref, v)
	}
	n.pull()
}

// remove clears slot and returns n, or nil once n holds nothing.
func remove(n *node, slot uint64) *node {
	if n == nil {
		return nil
	}
	if n.leaf() {
		return nil
	}
	if slot < n.lo+(n.hi-n.lo)/2 {
		n.left = remove(n.left, slot)
	} else {
		n.right = remove(n.right, slot)
	}
	n.pull()
	if n.count == 0 {
		return nil
	}
	return n
}

func (x *Index) removeSlot(slot uint64) {
	hi := x.root.hi
	x.root = remove(x.root, slot)
	if x.root == nil {
		x.root = &node{lo: 0, hi: hi}
	}
}

// Remove deletes the record with the given ID.
func (x *Index) Remove(id uint32) bool {
	h, ok := x.byID[id]
	if !ok {
		return false
	}
	delete(x.byID, id)
	x.removeSlot(uint64(h))
	return true
}

// Find returns the Ref stored for id.
func (x *Index) Find(id uint32) (model.Ref, bool) {
	h, ok := x.byID[id]
	if !ok {
		return model.Ref{}, false
	}
	n := x.root
	slot := uint64(h)
	for n != nil && !n.leaf() {
		if slot < n.lo+(n.hi-n.lo)/2 {
			n = n.left
		} else {
			n = n.right
		}
	}
	if n == nil {
		return model.Ref{}, false
	}
	return n.ref, true
}

// SumLast returns the sum of the cached feature over the k newest records.
// k <= 0 or k > Len covers every record.
func (x *Index) SumLast(k int) float64 {
	if k <= 0 || k >= x.root.count {
		return x.root.sum
	}
	return sumLast(x.root, k)
}

func sumLast(n *node, k int) float64 {
	if n == nil || k <= 0 {
		return 0
	}
	if k >= n.count {
		return n.sum
	}
	if n.right != nil && k <= n.right.count {
		return sumLast(n.right, k)
	}
	right := 0.0
	taken := 0
	if n.right != nil {
		right, taken = n.right.sum, n.right.count
	}
	return right + sumLast(n.left, k-taken)
}

// Ascend visits records in arrival order until fn returns false.
func (x *Index) Ascend(fn func(ref model.Ref) bool) {
	ascend(x.root, fn)
}

func ascend(n *node, fn func(model.Ref) bool) bool {
	if n == nil || n.count == 0 {
		return true
	}
	if n.leaf() {
		return fn(n.ref)
	}
	return ascend(n.left, fn) && ascend(n.right, fn)
}

// lastLeaves collects up to k leaves, newest first.
func lastLeaves(n *node, k int, out []*node) []*node {
	if n == nil || n.count == 0 || len(out) >= k {
		return out
	}
	if n.leaf() {
		return append(out, n)
	}
	out = lastLeaves(n.right, k, out)
	return lastLeaves(n.left, k, out)
}

// window returns the feature values of the newest window records. NaN and
// infinite values are left out.
func (x *Index) window(f model.Feature, window int) []float64 {
	n := x.root.count
	if window <= 0 || window > n {
		window = n
	}
	leaves := lastLeaves(x.root, window, make([]*node, 0, window))
	values := make([]float64, 0, len(leaves))
	skipped := 0
	for _, l := range leaves {
		v := l.value
		if f != x.feature {
			rec, ok := x.resolver.Resolve(l.ref)
			if !ok {
				x.log.Warn("stale ref in aggregate", "id", l.ref.ID)
				continue
			}
			v = f.Value(rec)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			skipped++
			continue
		}
		values = append(values, v)
	}
	if skipped > 0 {
		x.log.Debug("non-finite values left out of window", "feature", f.String(), "count", skipped)
	}
	return values
}

// Stat summarizes f over the newest window records. A window that is not
// positive or exceeds Len covers every record; an empty tree yields zeros.
// Count excludes non-finite values.
func (x *Index) Stat(f model.Feature, window int) model.WindowStats {
	values := x.window(f, window)
	st := model.WindowStats{Feature: f.String(), Window: window, Count: len(values)}
	if window <= 0 || window > x.Len() {
		st.Window = x.Len()
	}
	if len(values) == 0 {
		return st
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	st.Avg = sum / float64(len(values))

	sq := 0.0
	for _, v := range values {
		d := v - st.Avg
		sq += d * d
	}
	st.StdDev = math.Sqrt(sq / float64(len(values)))

	slices.Sort(values)
	st.Min, st.Max = values[0], values[len(values)-1]
	mid := len(values) / 2
	if len(values)%2 == 0 {
		st.Median = (values[mid-1] + values[mid]) / 2
	} else {
		st.Median = values[mid]
	}
	return st
}

// Bin is one histogram bucket covering [Low, High).
type Bin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// DefaultBins is used when Histogram is asked for a non-positive bin count.
const DefaultBins = 10

// Histogram buckets f over the newest window records into equal-width bins
// between the window minimum and maximum. The maximum lands in the last bin.
// When every value is equal a single bin holds them all.
func (x *Index) Histogram(f model.Feature, window, bins int) []Bin {
	if bins <= 0 {
		bins = DefaultBins
	}
	values := x.window(f, window)
	if len(values) == 0 {
		return nil
	}
	lo, hi := slices.Min(values), slices.Max(values)
	span := hi - lo
	if span == 0 {
		return []Bin{{Low: lo, High: hi, Count: len(values)}}
	}
	out := make([]Bin, bins)
	width := span / float64(bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = lo + float64(i+1)*width
	}
	for _, v := range values {
		b := max(0, min(int((v-lo)/span*float64(bins)), bins-1))
		out[b].Count++
	}
	return out
}
