// Package metrics exposes compilation counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stcgate"

// Metrics holds the collectors for one gateway instance. Each instance owns
// its registry so tests and embedded servers never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	compilations     *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	artifactFailures *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compilations_total",
			Help:      "Compilation requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compilation_duration_seconds",
			Help:      "Wall time from staging to decision.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compilations_in_flight",
			Help:      "Compiler processes currently running.",
		}),
		artifactFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_failures_total",
			Help:      "Artifacts dropped because they were missing or malformed.",
		}, []string{"artifact"}),
	}
	m.registry.MustRegister(
		m.compilations,
		m.duration,
		m.inFlight,
		m.artifactFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one finished compilation.
func (m *Metrics) Observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.compilations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ArtifactFailed counts one degraded artifact.
func (m *Metrics) ArtifactFailed(artifact string) {
	if m == nil {
		return
	}
	m.artifactFailures.WithLabelValues(artifact).Inc()
}

// Started marks a compiler process as running and returns its completion func.
func (m *Metrics) Started() (done func()) {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
