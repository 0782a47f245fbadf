package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"FlowSpectra/internal/config"
)

// HistoryPoint is one persisted window-statistics row.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Feature   string    `json:"feature"`
	Window    uint32    `json:"window"`
	Count     uint32    `json:"count"`
	Avg       float64   `json:"avg"`
	StdDev    float64   `json:"stddev"`
	Median    float64   `json:"median"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	StoreSize uint64    `json:"store_size"`
}

// HistoryRequest filters persisted snapshots.
type HistoryRequest struct {
	Feature string
	RunID   string
	Since   time.Time
	Limit   int
}

// Querier reads snapshot history written by the ClickHouse writer.
type Querier interface {
	WindowHistory(ctx context.Context, req HistoryRequest) ([]HistoryPoint, error)
}

type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier connects to the database the ClickHouse writer fills.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// WindowHistory returns the newest rows first.
func (q *clickhouseQuerier) WindowHistory(ctx context.Context, req HistoryRequest) ([]HistoryPoint, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT Timestamp, RunID, Feature, Window, Count, Avg, StdDev, Median, Min, Max, StoreSize
		FROM flow_window_stats
	`)

	var where []string
	args := []any{}
	if req.Feature != "" {
		where = append(where, "Feature = ?")
		args = append(args, req.Feature)
	}
	if req.RunID != "" {
		where = append(where, "RunID = ?")
		args = append(args, req.RunID)
	}
	if !req.Since.IsZero() {
		where = append(where, "Timestamp >= ?")
		args = append(args, req.Since)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	fmt.Fprintf(&b, " ORDER BY Timestamp DESC LIMIT %d", limit)

	rows, err := q.conn.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(&p.Timestamp, &p.RunID, &p.Feature, &p.Window, &p.Count,
			&p.Avg, &p.StdDev, &p.Median, &p.Min, &p.Max, &p.StoreSize); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
