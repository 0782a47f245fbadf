package probe

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/model"
)

// Publisher encodes record batches and publishes them to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	prefix  string
	log     *slog.Logger
}

// NewPublisher connects to NATS.
func NewPublisher(cfg config.ProbeConfig, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("ns-index-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	log := logger.With("component", "publisher")
	log.Info("connected to NATS server", "url", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject, prefix: cfg.PayloadPrefix, log: log}, nil
}

// Frame encodes batch into a payload, prepending "<prefix> " when prefix is set.
func Frame(batch []model.Record, prefix string) []byte {
	body := protocol.EncodeBatch(batch)
	if prefix == "" {
		return body
	}
	out := make([]byte, 0, len(prefix)+1+len(body))
	out = append(out, prefix...)
	out = append(out, ' ')
	return append(out, body...)
}

// Publish sends one batch as a single message.
func (p *Publisher) Publish(batch []model.Record) error {
	if len(batch) == 0 {
		return nil
	}
	return p.nc.Publish(p.subject, Frame(batch, p.prefix))
}

// Flush waits until the server has processed every published message.
func (p *Publisher) Flush() error {
	return p.nc.Flush()
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.log.Warn("drain failed", "error", err)
		}
		p.log.Info("NATS connection drained and closed")
	}
}
