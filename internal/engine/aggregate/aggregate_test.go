package aggregate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/store"
	"FlowSpectra/internal/model"
)

func fill(t *testing.T, rates ...float32) (*store.Store, *Index, []model.Ref) {
	t.Helper()
	s, err := store.New(config.StoreConfig{Capacity: 1 << 16, EvictThreshold: 1 << 16, EvictBatch: 1}, nil)
	require.NoError(t, err)
	x := New(s, model.FeatureRate, nil)
	refs := make([]model.Ref, 0, len(rates))
	for i, r := range rates {
		ref, err := s.Admit(model.Record{ID: uint32(100 + i), Rate: r, Spkts: uint16(i + 1)})
		require.NoError(t, err)
		require.True(t, x.Insert(ref))
		refs = append(refs, ref)
	}
	return s, x, refs
}

func TestTotalAndFind(t *testing.T) {
	_, x, refs := fill(t, 1, 2, 3, 4)
	assert.Equal(t, 4, x.Len())
	assert.InDelta(t, 10.0, x.Total(), 1e-9)

	got, ok := x.Find(102)
	require.True(t, ok)
	assert.Equal(t, refs[2], got)

	require.True(t, x.Remove(102))
	assert.False(t, x.Remove(102))
	assert.InDelta(t, 7.0, x.Total(), 1e-9)
	_, ok = x.Find(102)
	assert.False(t, ok)
}

func TestStatWindow(t *testing.T) {
	_, x, _ := fill(t, 10, 1, 2, 3, 4)

	st := x.Stat(model.FeatureRate, 4)
	assert.Equal(t, 4, st.Count)
	assert.InDelta(t, 2.5, st.Avg, 1e-9)
	assert.InDelta(t, 2.5, st.Median, 1e-9)
	assert.InDelta(t, math.Sqrt(1.25), st.StdDev, 1e-9)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 4.0, st.Max)

	all := x.Stat(model.FeatureRate, 0)
	assert.Equal(t, 5, all.Count)
	assert.Equal(t, 5, all.Window)
	assert.InDelta(t, 4.0, all.Avg, 1e-9)
	assert.InDelta(t, 3.0, all.Median, 1e-9)

	assert.Equal(t, 5, x.Stat(model.FeatureRate, 99).Count)
}

func TestStatUncachedFeature(t *testing.T) {
	_, x, _ := fill(t, 5, 5, 5)
	st := x.Stat(model.FeatureSpkts, 2)
	assert.Equal(t, 2, st.Count)
	assert.InDelta(t, 2.5, st.Avg, 1e-9)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 3.0, st.Max)
}

func TestStatEmpty(t *testing.T) {
	_, x, _ := fill(t)
	st := x.Stat(model.FeatureRate, 10)
	assert.Zero(t, st.Count)
	assert.Zero(t, st.Avg)
	assert.Zero(t, st.StdDev)
	assert.Zero(t, st.Median)
	assert.Nil(t, x.Histogram(model.FeatureRate, 10, 4))
}

func TestSumLastMatchesWindow(t *testing.T) {
	rates := make([]float32, 300)
	for i := range rates {
		rates[i] = float32(i % 17)
	}
	_, x, _ := fill(t, rates...)
	for _, k := range []int{1, 2, 7, 64, 150, 299, 300} {
		want := 0.0
		for _, r := range rates[len(rates)-k:] {
			want += float64(r)
		}
		assert.InDelta(t, want, x.SumLast(k), 1e-6, "k=%d", k)
	}
}

func TestEvictionKeepsWindowOrder(t *testing.T) {
	s, x, _ := fill(t, 1, 2, 3, 4, 5, 6)
	for _, id := range s.EvictOldest(3) {
		require.True(t, x.Remove(id))
	}
	var order []uint32
	x.Ascend(func(r model.Ref) bool {
		order = append(order, r.ID)
		return true
	})
	assert.Equal(t, []uint32{103, 104, 105}, order)
	assert.InDelta(t, 15.0, x.Total(), 1e-9)
	assert.InDelta(t, 5.5, x.Stat(model.FeatureRate, 2).Avg, 1e-9)
}

type mapResolver map[model.Handle]*model.Record

func (m mapResolver) Resolve(ref model.Ref) (*model.Record, bool) {
	rec, ok := m[ref.Handle]
	if !ok || rec.ID != ref.ID {
		return nil, false
	}
	return rec, true
}

func TestGrowsBeyondInitialSpan(t *testing.T) {
	far := model.Handle(initialSpan*4 + 3)
	r := mapResolver{
		1:   {ID: 1, Rate: 2},
		far: {ID: 2, Rate: 7},
	}
	x := New(r, model.FeatureRate, nil)
	require.True(t, x.Insert(model.Ref{ID: 1, Handle: 1}))
	require.True(t, x.Insert(model.Ref{ID: 2, Handle: far}))

	assert.Greater(t, x.root.hi, uint64(far))
	assert.InDelta(t, 9.0, x.Total(), 1e-9)
	got, ok := x.Find(2)
	require.True(t, ok)
	assert.Equal(t, far, got.Handle)

	require.True(t, x.Remove(2))
	require.True(t, x.Remove(1))
	assert.Zero(t, x.Len())
	assert.Zero(t, x.Total())
}

func TestHistogram(t *testing.T) {
	_, x, _ := fill(t, 0, 1, 2, 3, 4, 5, 6, 7, 8, 10)
	bins := x.Histogram(model.FeatureRate, 0, 5)
	require.Len(t, bins, 5)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 0.0, bins[0].Low)
	assert.Equal(t, 10.0, bins[4].High)
	for _, b := range bins {
		assert.Equal(t, 2, b.Count)
	}

	flat := func() []Bin {
		_, y, _ := fill(t, 3, 3, 3)
		return y.Histogram(model.FeatureRate, 0, 0)
	}()
	require.Len(t, flat, 1)
	assert.Equal(t, 3, flat[0].Count)
}

func TestReinsertMovesHandle(t *testing.T) {
	r := mapResolver{
		3: {ID: 9, Rate: 1},
		8: {ID: 9, Rate: 5},
	}
	x := New(r, model.FeatureRate, nil)
	require.True(t, x.Insert(model.Ref{ID: 9, Handle: 3}))
	require.True(t, x.Insert(model.Ref{ID: 9, Handle: 8}))

	assert.Equal(t, 1, x.Len())
	assert.InDelta(t, 5.0, x.Total(), 1e-9)
	got, _ := x.Find(9)
	assert.Equal(t, model.Handle(8), got.Handle)

	assert.False(t, x.Insert(model.Ref{ID: 1}))
	assert.False(t, x.Insert(model.Ref{ID: 4, Handle: 99}), "unresolvable ref")
}

func TestNonFiniteValuesLeftOut(t *testing.T) {
	inf, nan := float32(math.Inf(1)), float32(math.NaN())
	_, x, _ := fill(t, 1, 2, inf, nan, -inf, 3)
	require.Equal(t, 6, x.Len())
	assert.Equal(t, 6.0, x.Total())

	st := x.Stat(model.FeatureRate, 0)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 2.0, st.Avg)
	assert.Equal(t, 2.0, st.Median)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 3.0, st.Max)
	_, err := json.Marshal(st)
	require.NoError(t, err)

	newest := x.Stat(model.FeatureRate, 2)
	assert.Equal(t, 1, newest.Count)
	assert.Equal(t, 3.0, newest.Avg)

	var bins []Bin
	require.NotPanics(t, func() { bins = x.Histogram(model.FeatureRate, 0, 4) })
	require.Len(t, bins, 4)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[3].Count)

	_, y, _ := fill(t, nan, inf)
	assert.Nil(t, y.Histogram(model.FeatureRate, 0, 4))
	assert.Equal(t, 0, y.Stat(model.FeatureRate, 0).Count)
}
