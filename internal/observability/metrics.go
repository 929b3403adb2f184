package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// Metrics records pipeline and HTTP metrics on its own registry, so several
// instances (one per test, say) never collide.
type Metrics struct {
	registry *prometheus.Registry

	generationsTotal       *prometheus.CounterVec
	generationSeconds      *prometheus.HistogramVec
	reconcileFailuresTotal *prometheus.CounterVec
	recordsTotal           *prometheus.CounterVec
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestSeconds     *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. Process and Go runtime
// collectors are included.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlexplain_generations_total",
				Help: "Total number of language model calls by category and outcome.",
			},
			[]string{"category", "outcome"},
		),
		generationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlexplain_generation_duration_seconds",
				Help:    "Language model call latency in seconds.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"category"},
		),
		reconcileFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlexplain_reconcile_failures_total",
				Help: "Total number of replies that could not be matched back onto units.",
			},
			[]string{"category"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlexplain_records_total",
				Help: "Total number of explanation records emitted by type.",
			},
			[]string{"type"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlexplain_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlexplain_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.generationsTotal,
		m.generationSeconds,
		m.reconcileFailuresTotal,
		m.recordsTotal,
		m.httpRequestsTotal,
		m.httpRequestSeconds,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveGeneration implements explain.Observer.
func (m *Metrics) ObserveGeneration(category core.Category, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.generationsTotal.WithLabelValues(string(category), outcome).Inc()
	m.generationSeconds.WithLabelValues(string(category)).Observe(elapsed.Seconds())
}

// ObserveReconcileFailure implements explain.Observer.
func (m *Metrics) ObserveReconcileFailure(category core.Category) {
	m.reconcileFailuresTotal.WithLabelValues(string(category)).Inc()
}

// ObserveRecords implements explain.Observer.
func (m *Metrics) ObserveRecords(records []core.ExplanationRecord) {
	for _, r := range records {
		m.recordsTotal.WithLabelValues(string(r.Type)).Inc()
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestSeconds.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}
