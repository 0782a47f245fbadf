package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, interval time.Duration, logger *slog.Logger) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse, interval, logger)
	})
}

const createStatsTable = `
CREATE TABLE IF NOT EXISTS flow_window_stats (
    Timestamp          DateTime,
    RunID              String,
    Feature            String,
    Window             UInt32,
    Count              UInt32,
    Avg                Float64,
    StdDev             Float64,
    Median             Float64,
    Min                Float64,
    Max                Float64,
    StoreSize          UInt64,
    Evicted            UInt64,
    BufferReady        UInt64,
    BufferDropped      UInt64,
    ChainCollisionRate Float64,
    CuckooLoadFactor   Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Feature, Timestamp);
`

const createIndexTable = `
CREATE TABLE IF NOT EXISTS flow_index_sizes (
    Timestamp DateTime,
    RunID     String,
    IndexName String,
    Size      UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (IndexName, Timestamp);
`

// ClickHouseWriter appends snapshot rows to ClickHouse.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
	log      *slog.Logger
}

// NewClickHouseWriter connects and ensures both tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration, logger *slog.Logger) (*ClickHouseWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	for _, stmt := range []string{createStatsTable, createIndexTable} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log := logger.With("component", "writer", "type", "clickhouse")
	log.Info("connected to ClickHouse and ensured tables exist", "host", cfg.Host, "database", cfg.Database)
	return &ClickHouseWriter{conn: conn, interval: interval, log: log}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

// Write appends one stats row and one row per index.
func (w *ClickHouseWriter) Write(snap *model.Snapshot) error {
	ctx := context.Background()
	ts := snap.Timestamp.UTC()

	stats, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_window_stats")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	s := snap.Stats
	if err := stats.Append(
		ts, snap.RunID, s.Feature, uint32(s.Window), uint32(s.Count),
		s.Avg, s.StdDev, s.Median, s.Min, s.Max,
		uint64(snap.StoreSize), snap.Evicted,
		uint64(snap.Buffer.Ready), snap.Buffer.Dropped,
		snap.Chain.CollisionRate, snap.Cuckoo.LoadFactor,
	); err != nil {
		return fmt.Errorf("failed to append stats row: %w", err)
	}
	if err := stats.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	if len(snap.IndexSizes) == 0 {
		return nil
	}
	sizes, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_index_sizes")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for name, n := range snap.IndexSizes {
		if err := sizes.Append(ts, snap.RunID, name, uint64(n)); err != nil {
			return fmt.Errorf("failed to append index row: %w", err)
		}
	}
	if err := sizes.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	w.log.Debug("snapshot written", "records", snap.StoreSize, "indexes", len(snap.IndexSizes))
	return nil
}

// Close releases the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
