package model

import "time"

// Writer defines a generic interface for persisting engine snapshots.
type Writer interface {
	// Write persists a single snapshot.
	Write(snap *Snapshot) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration
}

// WindowStats summarizes one feature over the most recent records.
type WindowStats struct {
	Feature string  `json:"feature"`
	Window  int     `json:"window"`
	Count   int     `json:"count"`
	Avg     float64 `json:"avg"`
	StdDev  float64 `json:"stddev"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// ChainStats is the occupancy telemetry of the chaining hash table.
type ChainStats struct {
	Buckets       int     `json:"buckets"`
	Items         int     `json:"items"`
	UsedBuckets   int     `json:"used_buckets"`
	MaxChain      int     `json:"max_chain"`
	Collisions    int     `json:"collisions"`
	LoadFactor    float64 `json:"load_factor"`
	CollisionRate float64 `json:"collision_rate"`
}

// CuckooUsage is the occupancy telemetry of the cuckoo hash table.
type CuckooUsage struct {
	CapacityPerTable int     `json:"capacity_per_table"`
	TotalCapacity    int     `json:"total_capacity"`
	Size             int     `json:"size"`
	Table1Percent    float64 `json:"table1_percent"`
	Table2Percent    float64 `json:"table2_percent"`
	LoadFactor       float64 `json:"load_factor"`
	MaxLoop          int     `json:"max_loop"`
	Rehashes         int     `json:"rehashes"`
}

// BufferStats is a consistent view of the ingestion buffer counters.
type BufferStats struct {
	Capacity int    `json:"capacity"`
	Head     int    `json:"head"`
	Tail     int    `json:"tail"`
	Ready    int    `json:"ready"`
	Appended uint64 `json:"appended"`
	Dropped  uint64 `json:"dropped"`
	Consumed uint64 `json:"consumed"`
}

// Snapshot is the point-in-time engine state handed to writers.
type Snapshot struct {
	RunID      string         `json:"run_id"`
	Timestamp  time.Time      `json:"timestamp"`
	StoreSize  int            `json:"store_size"`
	Evicted    uint64         `json:"evicted"`
	Buffer     BufferStats    `json:"buffer"`
	Stats      WindowStats    `json:"stats"`
	IndexSizes map[string]int `json:"index_sizes"`
	Chain      ChainStats     `json:"chain"`
	Cuckoo     CuckooUsage    `json:"cuckoo"`
}
