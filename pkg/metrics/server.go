package metrics

import "time"

// ServerMetrics provides observability for pkg/server's push-batch
// validator: per-batch outcome and latency, plus the specific rejection
// reasons §4.7 enumerates, each worth alerting on separately. Optional -
// pass nil to disable metrics collection with zero overhead.
type ServerMetrics interface {
	// ObserveUpsert records one completed Upsert call.
	//
	// Parameters:
	//   - outcome: "applied", "cas_mismatch", "validation_failed",
	//     "usage_over_cap", "not_permissioned", "error"
	//   - diffCount: number of diffs in the batch
	//   - duration: time taken to validate and apply the batch
	ObserveUpsert(outcome string, diffCount int, duration time.Duration)

	// ObserveValidationPhase records time spent in one stageGroup check
	// ("hmac", "cas", "access", "deleted", "invariants").
	ObserveValidationPhase(phase string, duration time.Duration)

	// RecordUsageRejection records a ChangeDoc call rejected by the
	// per-owner usage cap. Upsert does not check the cap.
	RecordUsageRejection(owner string)

	// RecordUsageBytes records an owner's current document-byte usage
	// after AddUsedBytes, for capacity dashboards.
	RecordUsageBytes(owner string, bytes int64)
}

// NewServerMetrics creates a new Prometheus-backed ServerMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewServerMetrics() ServerMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusServerMetrics()
}

// newPrometheusServerMetrics is implemented in
// pkg/metrics/prometheus/server.go. This indirection avoids import cycles
// while keeping the API clean.
var newPrometheusServerMetrics func() ServerMetrics

// RegisterServerMetricsConstructor registers the Prometheus server metrics
// constructor. Called by pkg/metrics/prometheus/server.go during package
// initialization.
func RegisterServerMetricsConstructor(constructor func() ServerMetrics) {
	newPrometheusServerMetrics = constructor
}

// ObserveServerUpsert is a nil-safe helper for callers holding a
// ServerMetrics they'd rather not nil-check inline.
func ObserveServerUpsert(m ServerMetrics, outcome string, diffCount int, duration time.Duration) {
	if m != nil {
		m.ObserveUpsert(outcome, diffCount, duration)
	}
}
