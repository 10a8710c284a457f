package prometheus

import (
	"time"

	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterSyncMetricsConstructor(func() metrics.SyncMetrics { return NewSyncMetrics() })
}

// syncMetrics is the Prometheus implementation of metrics.SyncMetrics.
type syncMetrics struct {
	syncTotal       *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	phaseDuration   *prometheus.HistogramVec
	docsTransferred *prometheus.CounterVec
	bytesTransferred *prometheus.CounterVec
	casRetries      prometheus.Counter
	syncsInFlight   prometheus.Gauge
}

// NewSyncMetrics creates a new Prometheus-backed metrics.SyncMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSyncMetrics() metrics.SyncMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &syncMetrics{
		syncTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_sync_total",
				Help: "Total number of completed Core.Sync calls by outcome",
			},
			[]string{"outcome"},
		),
		syncDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_sync_duration_seconds",
				Help:    "Duration of a full Core.Sync call",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		phaseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_sync_phase_duration_seconds",
				Help:    "Duration of one reconciliation phase",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"}, // "pull", "merge", "push"
		),
		docsTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_sync_docs_transferred_total",
				Help: "Total document bodies transferred during sync",
			},
			[]string{"direction"}, // "upload", "download"
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_sync_bytes_transferred_total",
				Help: "Total ciphertext bytes transferred during sync",
			},
			[]string{"direction"},
		),
		casRetries: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "lockbook_sync_cas_retries_total",
				Help: "Total number of CAS-mismatch push retries",
			},
		),
		syncsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "lockbook_syncs_in_flight",
				Help: "Current number of Core.Sync calls in progress",
			},
		),
	}
}

func (m *syncMetrics) RecordSync(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(outcome).Inc()
	m.syncDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *syncMetrics) RecordSyncPhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *syncMetrics) RecordDocsTransferred(direction string, count int, bytes int64) {
	if m == nil {
		return
	}
	m.docsTransferred.WithLabelValues(direction).Add(float64(count))
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *syncMetrics) RecordCASRetry() {
	if m == nil {
		return
	}
	m.casRetries.Inc()
}

func (m *syncMetrics) SetSyncsInFlight(count int32) {
	if m == nil {
		return
	}
	m.syncsInFlight.Set(float64(count))
}
