package probe

import (
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlowSpectra/internal/engine/ingest"
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/model"
)

func batch(n int) []model.Record {
	rng := rand.New(rand.NewPCG(1, 1))
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Synthesize(uint32(i+1), rng)
	}
	return out
}

func TestHandlePayloadWithPrefix(t *testing.T) {
	buf := ingest.NewBuffer(8, nil)
	in := batch(3)

	accepted, dropped, err := HandlePayload(Frame(in, "data_batch"), "data_batch", buf, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 3, accepted)
	assert.Zero(t, dropped)
	assert.Equal(t, in, buf.TakeView())
}

func TestHandlePayloadRejectsMalformed(t *testing.T) {
	buf := ingest.NewBuffer(8, nil)

	_, _, err := HandlePayload(Frame(batch(1), ""), "data_batch", buf, slog.Default())
	assert.ErrorIs(t, err, protocol.ErrMalformedPayload)

	payload := Frame(batch(2), "")
	_, _, err = HandlePayload(payload[:len(payload)-5], "", buf, slog.Default())
	assert.ErrorIs(t, err, protocol.ErrMalformedPayload)

	assert.Zero(t, buf.Ready())
}

func TestHandlePayloadOverflow(t *testing.T) {
	buf := ingest.NewBuffer(4, nil)
	accepted, dropped, err := HandlePayload(Frame(batch(6), ""), "", buf, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 4, accepted)
	assert.Equal(t, 2, dropped)
}
