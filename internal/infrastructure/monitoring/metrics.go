package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Bundler metrics
	Resolutions   *prometheus.CounterVec
	Builds        *prometheus.CounterVec
	BuildDuration prometheus.Histogram

	// Polyfill metrics
	HashesCreated *prometheus.CounterVec
	Digests       *prometheus.CounterVec
	RandomFills   *prometheus.CounterVec
	RandomBytes   *prometheus.CounterVec

	// Sandbox metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram

	// Snapshot for logging - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for log summaries
type MetricsSnapshot struct {
	Redirected   int64
	Declined     int64
	Digests      int64
	InsecureFill int64
	Executions   int64
}

// NewMetrics creates a metrics collector registered against reg. A nil reg
// uses a private registry so callers that never scrape pay nothing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Bundler metrics
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_resolutions_total",
				Help: "Module resolution requests seen by the shim plugin",
			},
			[]string{"outcome"},
		),
		Builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_builds_total",
				Help: "Bundles built with the shim plugin",
			},
			[]string{"status"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nodeshim_build_duration_seconds",
				Help:    "Bundle build duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		// Polyfill metrics
		HashesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_hashes_created_total",
				Help: "Hash objects created",
			},
			[]string{"algorithm"},
		),
		Digests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_digests_total",
				Help: "Digest calls",
			},
			[]string{"encoding"},
		),
		RandomFills: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_random_fills_total",
				Help: "Random fills by selected source",
			},
			[]string{"source", "secure"},
		),
		RandomBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_random_bytes_total",
				Help: "Random bytes produced by selected source",
			},
			[]string{"source"},
		),

		// Sandbox metrics
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nodeshim_executions_total",
				Help: "Scripts executed in the sandbox",
			},
			[]string{"status"},
		),
		ExecutionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nodeshim_execution_duration_seconds",
				Help:    "Sandbox execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
	}
}

// RecordResolution records a resolve decision: "redirected", "declined" or
// "external".
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	switch outcome {
	case "redirected":
		m.snapshot.Redirected++
	case "declined":
		m.snapshot.Declined++
	}
	m.mu.Unlock()
}

// RecordBuild records a finished build
func (m *Metrics) RecordBuild(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Builds.WithLabelValues(status).Inc()
	m.BuildDuration.Observe(duration.Seconds())
}

// RecordHashCreated records a createHash call
func (m *Metrics) RecordHashCreated(algorithm string) {
	if m == nil {
		return
	}
	m.HashesCreated.WithLabelValues(algorithm).Inc()
}

// RecordDigest records a digest call
func (m *Metrics) RecordDigest(encoding string) {
	if m == nil {
		return
	}
	m.Digests.WithLabelValues(encoding).Inc()

	m.mu.Lock()
	m.snapshot.Digests++
	m.mu.Unlock()
}

// RecordRandomFill records a fill served by source
func (m *Metrics) RecordRandomFill(source string, secure bool, n int) {
	if m == nil {
		return
	}
	label := "false"
	if secure {
		label = "true"
	}
	m.RandomFills.WithLabelValues(source, label).Inc()
	m.RandomBytes.WithLabelValues(source).Add(float64(n))

	if !secure {
		m.mu.Lock()
		m.snapshot.InsecureFill++
		m.mu.Unlock()
	}
}

// RecordExecution records a finished sandbox execution
func (m *Metrics) RecordExecution(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(status).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Executions++
	m.mu.Unlock()
}

// Snapshot returns a copy of the tracked counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
