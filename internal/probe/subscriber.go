package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
)

// Sink receives decoded record batches. It must not block on the consumer.
type Sink interface {
	AppendBatch(items []model.Record) (accepted, dropped int)
}

// Subscriber pulls record batches from a NATS subject and feeds them to a Sink.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	prefix  string
	log     *slog.Logger
}

// NewSubscriber connects to NATS and opens a synchronous subscription.
func NewSubscriber(cfg config.ProbeConfig, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "probe")
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("ns-index"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	log.Info("connected to NATS server", "url", cfg.NATSURL)

	sub, err := nc.SubscribeSync(cfg.Subject)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", cfg.Subject, err)
	}
	log.Info("subscribed, waiting for record batches", "subject", cfg.Subject)
	return &Subscriber{nc: nc, sub: sub, subject: cfg.Subject, prefix: cfg.PayloadPrefix, log: log}, nil
}

// Run receives messages until ctx is cancelled or the subscription is
// closed. The receive blocks outside any buffer lock.
func (s *Subscriber) Run(ctx context.Context, sink Sink) error {
	for {
		msg, err := s.sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil ||
				errors.Is(err, nats.ErrConnectionClosed) ||
				errors.Is(err, nats.ErrBadSubscription) {
				return nil
			}
			return fmt.Errorf("receive from '%s': %w", s.subject, err)
		}
		HandlePayload(msg.Data, s.prefix, sink, s.log)
	}
}

// HandlePayload strips the optional frame, decodes the batch and hands it to
// sink. Malformed payloads are logged, counted and dropped whole.
func HandlePayload(payload []byte, prefix string, sink Sink, log *slog.Logger) (accepted, dropped int, err error) {
	body, ok := protocol.StripPrefix(payload, prefix)
	if !ok {
		metrics.ProbeMalformed.Inc()
		err = fmt.Errorf("%w: missing '%s' frame", protocol.ErrMalformedPayload, prefix)
		log.Warn("dropping payload", "bytes", len(payload), "error", err)
		return 0, 0, err
	}
	batch, err := protocol.DecodeBatch(body)
	if err != nil {
		metrics.ProbeMalformed.Inc()
		log.Warn("dropping payload", "bytes", len(payload), "error", err)
		return 0, 0, err
	}
	metrics.ProbeBatches.Inc()
	accepted, dropped = sink.AppendBatch(batch)
	return accepted, dropped, nil
}

// Close unsubscribes and closes the connection, which also unblocks Run.
func (s *Subscriber) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.log.Warn("unsubscribe failed", "error", err)
		}
	}
	if s.nc != nil {
		s.nc.Close()
		s.log.Info("NATS connection closed")
	}
}
