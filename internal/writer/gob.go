// Package writer persists engine snapshots produced by the manager.
package writer

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

// TimestampLayout names snapshot directories.
const TimestampLayout = "2006-01-02_15-04-05"

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef, interval time.Duration, logger *slog.Logger) (model.Writer, error) {
		return NewGobWriter(def.Gob.RootPath, interval, logger), nil
	})
}

// Summary is the human-readable digest written next to each gob snapshot.
type Summary struct {
	RunID       string         `json:"run_id"`
	Timestamp   string         `json:"timestamp"`
	StoreSize   int            `json:"store_size"`
	Evicted     uint64         `json:"evicted"`
	BufferReady int            `json:"buffer_ready"`
	Dropped     uint64         `json:"dropped"`
	Feature     string         `json:"feature"`
	Avg         float64        `json:"avg"`
	IndexSizes  map[string]int `json:"index_sizes"`
}

// GobWriter writes each snapshot to <root>/<timestamp>/snapshot.gob along
// with a summary.json.
type GobWriter struct {
	rootPath string
	interval time.Duration
	log      *slog.Logger
}

// NewGobWriter creates a file writer rooted at rootPath.
func NewGobWriter(rootPath string, interval time.Duration, logger *slog.Logger) *GobWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GobWriter{rootPath: rootPath, interval: interval, log: logger.With("component", "writer", "type", "gob")}
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write persists snap. Snapshots of an empty store are skipped.
func (w *GobWriter) Write(snap *model.Snapshot) error {
	if snap.StoreSize == 0 {
		return nil
	}

	dir := filepath.Join(w.rootPath, snap.Timestamp.UTC().Format(TimestampLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	path := filepath.Join(dir, "snapshot.gob")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", path, err)
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot to gob for file '%s': %w", path, err)
	}

	summary := Summary{
		RunID:       snap.RunID,
		Timestamp:   snap.Timestamp.UTC().Format(time.RFC3339),
		StoreSize:   snap.StoreSize,
		Evicted:     snap.Evicted,
		BufferReady: snap.Buffer.Ready,
		Dropped:     snap.Buffer.Dropped,
		Feature:     snap.Stats.Feature,
		Avg:         snap.Stats.Avg,
		IndexSizes:  snap.IndexSizes,
	}
	summaryFile, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	enc := json.NewEncoder(summaryFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	w.log.Debug("snapshot written", "dir", dir, "records", snap.StoreSize)
	return nil
}

// ReadSnapshot decodes a snapshot.gob written by GobWriter.
func ReadSnapshot(path string) (*model.Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()
	var snap model.Snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot '%s': %w", path, err)
	}
	return &snap, nil
}
