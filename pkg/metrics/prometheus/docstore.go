package prometheus

import (
	"time"

	"github.com/lockbookapp/lockbook-core/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterDocStoreMetricsConstructor(func() metrics.DocStoreMetrics { return NewDocStoreMetrics() })
}

// docStoreMetrics is the Prometheus implementation of metrics.DocStoreMetrics.
type docStoreMetrics struct {
	writeOps      *prometheus.CounterVec
	writeBytes    *prometheus.HistogramVec
	writeDuration *prometheus.HistogramVec
	readOps       *prometheus.CounterVec
	readBytes     *prometheus.HistogramVec
	readDuration  *prometheus.HistogramVec
	misses        *prometheus.CounterVec
	docCount      *prometheus.GaugeVec
}

// byteBuckets covers a single-file note up through a large attachment.
var byteBuckets = []float64{
	1024,     // 1KB
	16384,    // 16KB
	131072,   // 128KB
	1048576,  // 1MB
	10485760, // 10MB
	104857600, // 100MB
}

// NewDocStoreMetrics creates a new Prometheus-backed metrics.DocStoreMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDocStoreMetrics() metrics.DocStoreMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &docStoreMetrics{
		writeOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_docstore_write_operations_total",
				Help: "Total document store Insert calls by backend",
			},
			[]string{"backend"},
		),
		writeBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_docstore_write_bytes",
				Help:    "Distribution of document ciphertext bytes written",
				Buckets: byteBuckets,
			},
			[]string{"backend"},
		),
		writeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_docstore_write_duration_seconds",
				Help:    "Duration of document store Insert calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		readOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_docstore_read_operations_total",
				Help: "Total document store Get calls by backend and status",
			},
			[]string{"backend", "status"}, // status: "hit", "miss"
		),
		readBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_docstore_read_bytes",
				Help:    "Distribution of document ciphertext bytes read",
				Buckets: byteBuckets,
			},
			[]string{"backend"},
		),
		readDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lockbook_docstore_read_duration_seconds",
				Help:    "Duration of document store Get calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		misses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lockbook_docstore_misses_total",
				Help: "Total Get calls that returned ErrNotFound",
			},
			[]string{"backend"},
		),
		docCount: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lockbook_docstore_documents",
				Help: "Current number of distinct (id, hmac) bodies held",
			},
			[]string{"backend"},
		),
	}
}

func (m *docStoreMetrics) ObserveWrite(backend string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.writeOps.WithLabelValues(backend).Inc()
	if bytes > 0 {
		m.writeBytes.WithLabelValues(backend).Observe(float64(bytes))
	}
	m.writeDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *docStoreMetrics) ObserveRead(backend string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.readOps.WithLabelValues(backend, "hit").Inc()
	if bytes > 0 {
		m.readBytes.WithLabelValues(backend).Observe(float64(bytes))
	}
	m.readDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *docStoreMetrics) RecordMiss(backend string) {
	if m == nil {
		return
	}
	m.readOps.WithLabelValues(backend, "miss").Inc()
	m.misses.WithLabelValues(backend).Inc()
}

func (m *docStoreMetrics) RecordDocCount(backend string, count int64) {
	if m == nil {
		return
	}
	m.docCount.WithLabelValues(backend).Set(float64(count))
}
