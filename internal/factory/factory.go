package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"
)

// ErrUnknownIndex is returned for an index name or tag nobody registered.
var ErrUnknownIndex = errors.New("unknown index")

// IndexFactory builds one index variant from the index section of the config.
type IndexFactory func(cfg config.IndexConfig, logger *slog.Logger) (model.Index, error)

// WriterFactory builds one snapshot writer from its definition.
type WriterFactory func(def config.WriterDef, interval time.Duration, logger *slog.Logger) (model.Writer, error)

var (
	indexRegistry  = make(map[string]IndexFactory)
	writerRegistry = make(map[string]WriterFactory)
)

// RegisterIndex registers an index variant under its name.
func RegisterIndex(name string, f IndexFactory) {
	if _, exists := indexRegistry[name]; exists {
		panic(fmt.Sprintf("index type '%s' already registered", name))
	}
	indexRegistry[name] = f
}

// RegisterWriter registers a snapshot writer type.
func RegisterWriter(name string, f WriterFactory) {
	if _, exists := writerRegistry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	writerRegistry[name] = f
}

// NewIndex builds a single index variant by name.
func NewIndex(name string, cfg config.IndexConfig, logger *slog.Logger) (model.Index, error) {
	f, ok := indexRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownIndex, name)
	}
	idx, err := f(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating index type '%s': %w", name, err)
	}
	return idx, nil
}

// CreateIndexes builds every enabled index variant in configuration order.
// A variant listed twice is an error since tags must be unique.
func CreateIndexes(cfg config.IndexConfig, logger *slog.Logger) ([]model.Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[model.IndexTag]bool)
	indexes := make([]model.Index, 0, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		logger.Info("creating index", "type", name)
		idx, err := NewIndex(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		if seen[idx.Tag()] {
			return nil, fmt.Errorf("index type '%s' enabled twice", name)
		}
		seen[idx.Tag()] = true
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// CreateWriters builds every enabled writer. Writers with an unknown type or
// that fail to initialize are skipped with a warning.
func CreateWriters(defs []config.WriterDef, logger *slog.Logger) []model.Writer {
	if logger == nil {
		logger = slog.Default()
	}
	writers := make([]model.Writer, 0, len(defs))
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		interval, err := time.ParseDuration(def.SnapshotInterval)
		if err != nil {
			logger.Warn("invalid snapshot_interval, skipping writer", "type", def.Type, "error", err)
			continue
		}
		f, ok := writerRegistry[def.Type]
		if !ok {
			logger.Warn("unknown writer type in config, skipping", "type", def.Type)
			continue
		}
		w, err := f(def, interval, logger)
		if err != nil {
			logger.Warn("failed to create writer, skipping", "type", def.Type, "error", err)
			continue
		}
		writers = append(writers, w)
	}
	return writers
}
