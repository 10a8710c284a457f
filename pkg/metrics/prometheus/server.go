package prometheus

import (
	"time"

	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterServerMetricsConstructor(func() metrics.ServerMetrics { return NewServerMetrics() })
}

// serverMetrics is the Prometheus implementation of metrics.ServerMetrics.
type serverMetrics struct {
	upsertTotal    *prometheus.CounterVec
	upsertDuration *prometheus.HistogramVec
	diffCount      *prometheus.HistogramVec
	phaseDuration  *prometheus.HistogramVec
	usageRejections *prometheus.CounterVec
	usageBytes     *prometheus.GaugeVec
}

// diffCountBuckets covers a single-file rename through a large batched
// folder move.
var diffCountBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250}

// NewServerMetrics creates a new Prometheus-backed metrics.ServerMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewServerMetrics() metrics.ServerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &serverMetrics{
		upsertTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_server_upsert_total",
				Help: "Total Upsert calls by outcome",
			},
			[]string{"outcome"},
		),
		upsertDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_server_upsert_duration_seconds",
				Help:    "Duration of a full Upsert call",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		diffCount: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_server_upsert_diff_count",
				Help:    "Number of diffs in an Upsert batch",
				Buckets: diffCountBuckets,
			},
			[]string{"outcome"},
		),
		phaseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_server_validation_phase_duration_seconds",
				Help:    "Duration of one stageGroup validation phase",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"}, // "hmac", "cas", "access", "deleted", "invariants"
		),
		usageRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_server_usage_rejections_total",
				Help: "Total ChangeDoc calls rejected by the usage cap",
			},
			[]string{"owner"},
		),
		usageBytes: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lockbook_server_usage_bytes",
				Help: "Current document-byte usage per owner",
			},
			[]string{"owner"},
		),
	}
}

func (m *serverMetrics) ObserveUpsert(outcome string, diffCount int, duration time.Duration) {
	if m == nil {
		return
	}
	m.upsertTotal.WithLabelValues(outcome).Inc()
	m.upsertDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.diffCount.WithLabelValues(outcome).Observe(float64(diffCount))
}

func (m *serverMetrics) ObserveValidationPhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *serverMetrics) RecordUsageRejection(owner string) {
	if m == nil {
		return
	}
	m.usageRejections.WithLabelValues(owner).Inc()
}

func (m *serverMetrics) RecordUsageBytes(owner string, bytes int64) {
	if m == nil {
		return
	}
	m.usageBytes.WithLabelValues(owner).Set(float64(bytes))
}
