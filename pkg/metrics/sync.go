package metrics

import "time"

// SyncMetrics provides observability for pkg/syncer's reconciliation loop:
// one call through a full Sync (pull, merge, push) per RecordSync, plus
// finer-grained phase timings and document transfer counts. Optional - pass
// nil to disable metrics collection with zero overhead.
type SyncMetrics interface {
	// RecordSync records one completed Reconcile call's outcome.
	//
	// Parameters:
	//   - outcome: "success", "cas_conflict", "cancelled", "error"
	//   - duration: total time the reconciliation took
	RecordSync(outcome string, duration time.Duration)

	// RecordSyncPhase records the duration of one phase within a
	// reconciliation: "pull", "merge", "push".
	RecordSyncPhase(phase string, duration time.Duration)

	// RecordDocsTransferred records document bodies moved during a sync.
	//
	// Parameters:
	//   - direction: "upload" or "download"
	//   - count: number of documents transferred
	//   - bytes: total ciphertext bytes transferred
	RecordDocsTransferred(direction string, count int, bytes int64)

	// RecordCASRetry records one CAS-mismatch retry of a push batch.
	RecordCASRetry()

	// SetSyncsInFlight updates the number of Core.Sync calls currently
	// running. Always 0 or 1 per Core, but a process hosting many Cores
	// (a server-side batch job, a multi-account CLI) sums across them.
	SetSyncsInFlight(count int32)
}

// NewSyncMetrics creates a new Prometheus-backed SyncMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSyncMetrics() SyncMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusSyncMetrics()
}

// newPrometheusSyncMetrics is implemented in pkg/metrics/prometheus/sync.go.
// This indirection avoids import cycles while keeping the API clean.
var newPrometheusSyncMetrics func() SyncMetrics

// RegisterSyncMetricsConstructor registers the Prometheus sync metrics
// constructor. Called by pkg/metrics/prometheus/sync.go during package
// initialization.
func RegisterSyncMetricsConstructor(constructor func() SyncMetrics) {
	newPrometheusSyncMetrics = constructor
}

// ObserveSync is a nil-safe helper mirroring the teacher's Observe*
// free-function idiom, for callers holding a SyncMetrics they'd rather not
// nil-check inline.
func ObserveSync(m SyncMetrics, outcome string, duration time.Duration) {
	if m != nil {
		m.RecordSync(outcome, duration)
	}
}

// RecordDocsTransferred is a nil-safe helper for callers holding a
// SyncMetrics they'd rather not nil-check inline.
func RecordDocsTransferred(m SyncMetrics, direction string, count int, bytes int64) {
	if m != nil {
		m.RecordDocsTransferred(direction, count, bytes)
	}
}
