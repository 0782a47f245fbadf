package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/model"
)

func records(from, n uint32) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Record{ID: from + uint32(i)}
	}
	return out
}

func ids(view []model.Record) []uint32 {
	out := make([]uint32, len(view))
	for i, r := range view {
		out[i] = r.ID
	}
	return out
}

func TestBufferOverflowScenario(t *testing.T) {
	b := NewBuffer(4, nil)

	accepted, dropped := b.AppendBatch(records(1, 6))
	assert.Equal(t, 4, accepted)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 4, b.Ready())

	view := b.TakeView()
	require.Len(t, view, 4)
	assert.Equal(t, []uint32{1, 2, 3, 4}, ids(view))

	assert.Equal(t, 2, b.MarkConsumed(2))
	assert.Equal(t, 2, b.Ready())

	view = b.TakeView()
	assert.Equal(t, []uint32{3, 4}, ids(view))

	st := b.Stats()
	assert.Equal(t, 2, st.Head)
	assert.Equal(t, 0, st.Tail)
	assert.Equal(t, uint64(2), st.Dropped)
}

func TestBufferWrapAround(t *testing.T) {
	b := NewBuffer(4, nil)
	b.AppendBatch(records(1, 3))
	b.MarkConsumed(3)

	accepted, dropped := b.AppendBatch(records(10, 3))
	require.Equal(t, 3, accepted)
	require.Equal(t, 0, dropped)

	// The view stops at the end of the backing array.
	first := b.TakeView()
	assert.Equal(t, []uint32{10}, ids(first))
	b.MarkConsumed(len(first))

	second := b.TakeView()
	assert.Equal(t, []uint32{11, 12}, ids(second))
	b.MarkConsumed(len(second))

	assert.Nil(t, b.TakeView())
	assert.Equal(t, 0, b.Ready())
}

func TestBufferClampsOverConsume(t *testing.T) {
	b := NewBuffer(8, nil)
	b.AppendBatch(records(1, 3))

	assert.Equal(t, 3, b.MarkConsumed(10))
	assert.Equal(t, 0, b.Ready())
	assert.Equal(t, 0, b.MarkConsumed(1))
	assert.Equal(t, 0, b.MarkConsumed(-1))
}

func TestBufferConservation(t *testing.T) {
	b := NewBuffer(16, nil)
	next := uint32(1)
	for round := range 200 {
		n := uint32(round%7 + 1)
		b.AppendBatch(records(next, n))
		next += n
		if round%3 == 0 {
			b.MarkConsumed(len(b.TakeView()))
		}
		st := b.Stats()
		require.Equal(t, st.Appended, st.Consumed+uint64(st.Ready), "round %d", round)
		require.LessOrEqual(t, st.Ready, st.Capacity)
		require.Equal(t, uint64(next-1), st.Appended+st.Dropped)
	}
}

func TestBufferNotify(t *testing.T) {
	b := NewBuffer(2, nil)

	b.AppendBatch(nil)
	select {
	case <-b.Notify():
		t.Fatal("empty append must not notify")
	default:
	}

	b.AppendBatch(records(1, 1))
	b.AppendBatch(records(2, 1))
	select {
	case <-b.Notify():
	default:
		t.Fatal("expected a notification")
	}
	select {
	case <-b.Notify():
		t.Fatal("notifications coalesce into one pending signal")
	default:
	}
}

func TestBufferConcurrentProducer(t *testing.T) {
	b := NewBuffer(64, nil)
	const total = 5000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint32(1); i <= total; i += 10 {
			b.AppendBatch(records(i, 10))
		}
	}()

	last := uint32(0)
	consume := func() {
		for {
			view := b.TakeView()
			if len(view) == 0 {
				return
			}
			for _, r := range view {
				require.Greater(t, r.ID, last)
				last = r.ID
			}
			b.MarkConsumed(len(view))
		}
	}
	for {
		select {
		case <-done:
			consume()
			st := b.Stats()
			assert.Equal(t, uint64(total), st.Appended+st.Dropped)
			assert.Equal(t, st.Appended, st.Consumed)
			return
		case <-b.Notify():
			consume()
		}
	}
}

func TestBufferDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewBuffer(0, nil).Capacity())
}
