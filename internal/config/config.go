package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// BufferConfig sizes the ingestion ring.
type BufferConfig struct {
	Capacity int `yaml:"capacity"`
}

// StoreConfig bounds the master store and drives eviction.
type StoreConfig struct {
	Capacity       int `yaml:"capacity"`
	EvictThreshold int `yaml:"evict_threshold"`
	EvictBatch     int `yaml:"evict_batch"`
}

// IndexConfig holds the construction parameters of the index variants.
type IndexConfig struct {
	Enabled          []string `yaml:"enabled"`
	ChainBuckets     int      `yaml:"chain_buckets"`
	CuckooCapacity   int      `yaml:"cuckoo_capacity"`
	SkipListMaxLevel int      `yaml:"skiplist_max_level"`
	SkipListP        float64  `yaml:"skiplist_p"`
	SkipListSeed     uint64   `yaml:"skiplist_seed"`
}

// AggregateConfig selects the cached feature and the default window of the segment tree.
type AggregateConfig struct {
	Feature string `yaml:"feature"`
	Window  int    `yaml:"window"`
}

// CategoryConfig selects how the inverted index follows eviction.
type CategoryConfig struct {
	Mode string `yaml:"mode"` // "rebuild" or "incremental"
}

// ConsumerConfig tunes the processing loop.
type ConsumerConfig struct {
	PollInterval string `yaml:"poll_interval"`
}

// ProbeConfig holds the NATS transport settings of the producer.
type ProbeConfig struct {
	Enabled       bool   `yaml:"enabled"`
	NATSURL       string `yaml:"nats_url"`
	Subject       string `yaml:"subject"`
	PayloadPrefix string `yaml:"payload_prefix"`
}

// APIConfig holds the HTTP query server settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ClickHouseConfig holds the connection details for a ClickHouse writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// GobConfig holds the settings of the file writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// WriterDef defines one snapshot writer.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Gob              GobConfig        `yaml:"gob"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Store     StoreConfig     `yaml:"store"`
	Indexes   IndexConfig     `yaml:"indexes"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Category  CategoryConfig  `yaml:"category"`
	Consumer  ConsumerConfig  `yaml:"consumer"`
	Probe     ProbeConfig     `yaml:"probe"`
	API       APIConfig       `yaml:"api"`
	Writers   []WriterDef     `yaml:"writers"`
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Buffer: BufferConfig{Capacity: 30000},
		Store: StoreConfig{
			Capacity:       200000,
			EvictThreshold: 150000,
			EvictBatch:     10000,
		},
		Indexes: IndexConfig{
			Enabled:          []string{"avl", "rbtree", "skiplist", "chainhash", "cuckoo"},
			ChainBuckets:     1024,
			CuckooCapacity:   101,
			SkipListMaxLevel: 16,
			SkipListP:        0.5,
		},
		Aggregate: AggregateConfig{Feature: "rate", Window: 1000},
		Category:  CategoryConfig{Mode: "rebuild"},
		Consumer:  ConsumerConfig{PollInterval: "50ms"},
		Probe: ProbeConfig{
			NATSURL:       "nats://127.0.0.1:4222",
			Subject:       "flows.records",
			PayloadPrefix: "",
		},
		API: APIConfig{ListenAddr: ":8080"},
	}
}

// LoadConfig reads the configuration from a YAML file on top of Default.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Buffer.Capacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", c.Buffer.Capacity)
	}
	s := c.Store
	if s.Capacity <= 0 {
		return fmt.Errorf("store capacity must be positive, got %d", s.Capacity)
	}
	if s.EvictThreshold <= 0 || s.EvictThreshold > s.Capacity {
		return fmt.Errorf("store evict_threshold must be in (0, capacity], got %d", s.EvictThreshold)
	}
	if s.EvictBatch <= 0 {
		return fmt.Errorf("store evict_batch must be positive, got %d", s.EvictBatch)
	}
	if c.Indexes.SkipListP < 0 || c.Indexes.SkipListP >= 1 {
		return fmt.Errorf("indexes skiplist_p must be in [0, 1), got %v", c.Indexes.SkipListP)
	}
	switch c.Category.Mode {
	case "rebuild", "incremental":
	default:
		return fmt.Errorf("category mode must be 'rebuild' or 'incremental', got %q", c.Category.Mode)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	for _, w := range c.Writers {
		if !w.Enabled {
			continue
		}
		if _, err := time.ParseDuration(w.SnapshotInterval); err != nil {
			return fmt.Errorf("invalid snapshot_interval for writer type '%s': %w", w.Type, err)
		}
	}
	return nil
}

// PollInterval returns the parsed consumer poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Consumer.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid consumer poll_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("consumer poll_interval must be a positive duration")
	}
	return d, nil
}

// NewLogger builds the slog logger described by the log section.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
