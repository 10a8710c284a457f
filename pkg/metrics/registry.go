// Package metrics defines the optional observability interfaces every
// instrumented component (sync reconciler, docstore backend, server
// validator) accepts, plus the process-wide switch controlling whether a
// concrete collector is ever constructed (grounded on the teacher's
// pkg/metrics enable/registry pattern). Passing nil anywhere one of these
// interfaces is expected keeps the caller's hot path allocation-free.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry turns metrics collection on process-wide and creates the
// Prometheus registry every NewXMetrics constructor registers into. Call
// once at startup before constructing any component; a process that never
// calls this runs with every metrics interface returning nil.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the registry InitRegistry created, or a throwaway one
// if metrics were never enabled - NewXMetrics constructors always check
// IsEnabled first, so this fallback is never actually registered into.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return prometheus.NewRegistry()
	}
	return registry
}
