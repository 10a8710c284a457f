package metrics

import "time"

// DocStoreMetrics provides observability for a pkg/docstore.Store backend
// (memstore, fsstore, s3store): byte counters and latencies for content
// reads/writes, keyed by backend name so a deployment mixing a local
// fsstore cache in front of an s3store remote can tell them apart.
// Optional - pass nil to disable metrics collection with zero overhead.
type DocStoreMetrics interface {
	// ObserveWrite records one Insert call.
	ObserveWrite(backend string, bytes int64, duration time.Duration)

	// ObserveRead records one Get call.
	ObserveRead(backend string, bytes int64, duration time.Duration)

	// RecordMiss records a Get call that returned docstore.ErrNotFound.
	RecordMiss(backend string)

	// RecordDocCount records the current number of distinct (id, hmac)
	// bodies a backend holds. No docstore backend or wrapper in this
	// module calls it.
	RecordDocCount(backend string, count int64)
}

// NewDocStoreMetrics creates a new Prometheus-backed DocStoreMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDocStoreMetrics() DocStoreMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusDocStoreMetrics()
}

// newPrometheusDocStoreMetrics is implemented in
// pkg/metrics/prometheus/docstore.go. This indirection avoids import
// cycles while keeping the API clean.
var newPrometheusDocStoreMetrics func() DocStoreMetrics

// RegisterDocStoreMetricsConstructor registers the Prometheus docstore
// metrics constructor. Called by pkg/metrics/prometheus/docstore.go during
// package initialization.
func RegisterDocStoreMetricsConstructor(constructor func() DocStoreMetrics) {
	newPrometheusDocStoreMetrics = constructor
}

// ObserveDocWrite is a nil-safe helper for callers holding a DocStoreMetrics
// they'd rather not nil-check inline.
func ObserveDocWrite(m DocStoreMetrics, backend string, bytes int64, duration time.Duration) {
	if m != nil {
		m.ObserveWrite(backend, bytes, duration)
	}
}

// ObserveDocRead is a nil-safe helper for callers holding a DocStoreMetrics
// they'd rather not nil-check inline.
func ObserveDocRead(m DocStoreMetrics, backend string, bytes int64, duration time.Duration) {
	if m != nil {
		m.ObserveRead(backend, bytes, duration)
	}
}
