// Package metrics exposes Prometheus collectors for package initialization.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "svcore"

// Metrics holds the initialization collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	inFlight        prometheus.Gauge
	packageOutcomes *prometheus.CounterVec
	packageDuration *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	capabilities    prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "init",
				Name:      "inflight_packages",
				Help:      "Current number of packages running their initialization.",
			},
		),
		packageOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "init",
				Name:      "package_outcomes_total",
				Help:      "Package initialization outcomes by package and status.",
			},
			[]string{"package", "status"},
		),
		packageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "init",
				Name:      "package_duration_seconds",
				Help:      "Duration of package initialization routines.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"package"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "init",
				Name:      "runs_total",
				Help:      "Orchestration runs by final state.",
			},
			[]string{"state"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "init",
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of orchestration runs.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
		),
		capabilities: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "capabilities_registered_total",
				Help:      "Capabilities published into the registry.",
			},
		),
	}

	m.registry.MustRegister(
		m.inFlight,
		m.packageOutcomes,
		m.packageDuration,
		m.runs,
		m.runDuration,
		m.capabilities,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PackageStarted marks one initialization as in flight.
func (m *Metrics) PackageStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// PackageFinished records a finished initialization routine.
func (m *Metrics) PackageFinished(pkg, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.packageOutcomes.WithLabelValues(pkg, status).Inc()
	m.packageDuration.WithLabelValues(pkg).Observe(d.Seconds())
}

// PackageResolved records an outcome for a package that never ran.
func (m *Metrics) PackageResolved(pkg, status string) {
	if m == nil {
		return
	}
	m.packageOutcomes.WithLabelValues(pkg, status).Inc()
}

// RunFinished records the end of an orchestration run.
func (m *Metrics) RunFinished(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state).Inc()
	m.runDuration.Observe(d.Seconds())
}

// CapabilityRegistered counts a capability publication.
func (m *Metrics) CapabilityRegistered() {
	if m == nil {
		return
	}
	m.capabilities.Inc()
}
