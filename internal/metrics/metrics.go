// Package metrics declares the Prometheus collectors of the engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var BufferAppended = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "buffer",
	Name:      "appended_total",
})

var BufferDropped = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "buffer",
	Name:      "dropped_total",
})

var BufferReady = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "flowspectra",
	Subsystem: "buffer",
	Name:      "ready",
})

var ProbeMalformed = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "probe",
	Name:      "malformed_payloads_total",
})

var ProbeBatches = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "probe",
	Name:      "batches_total",
})

var StoreAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "store",
	Name:      "admitted_total",
})

// StoreAdmitErrors is labelled by reason: "duplicate" or "full".
var StoreAdmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "store",
	Name:      "admit_errors_total",
}, []string{"reason"})

var StoreEvicted = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "store",
	Name:      "evicted_total",
})

var StoreSize = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "flowspectra",
	Subsystem: "store",
	Name:      "records",
})

var IndexSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "flowspectra",
	Subsystem: "index",
	Name:      "records",
}, []string{"index"})

var CuckooRehashes = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "index",
	Name:      "cuckoo_rehashes_total",
})

var EvictionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "flowspectra",
	Subsystem: "manager",
	Name:      "eviction_duration_ms",
	Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
})

var SnapshotWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "flowspectra",
	Subsystem: "writer",
	Name:      "snapshots_total",
}, []string{"writer", "result"})

// Collectors returns every collector of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		BufferAppended, BufferDropped, BufferReady,
		ProbeMalformed, ProbeBatches,
		StoreAdmitted, StoreAdmitErrors, StoreEvicted, StoreSize,
		IndexSize, CuckooRehashes, EvictionDuration, SnapshotWrites,
	}
}

// Register adds every collector to reg, ignoring collectors that are already
// registered.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
