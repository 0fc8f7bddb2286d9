// Package metrics exposes Prometheus counters for provider attempts, response
// sources, the response cache and inbound requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cambioproxy"

// Metrics owns its registry so tests can build independent instances.
type Metrics struct {
	Registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	sources         *prometheus.CounterVec
	cache           *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "Provider attempts by outcome (ok, skipped or failure kind).",
		}, []string{"provider", "outcome"}),
		attemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of provider attempts.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 8},
		}, []string{"provider"}),
		sources: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "response",
			Name:      "source_total",
			Help:      "Responses by endpoint and the source that answered.",
		}, []string{"endpoint", "source"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "httpcache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Inbound HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Observe records one provider attempt.
func (m *Metrics) Observe(provider, outcome string, took time.Duration) {
	m.attempts.WithLabelValues(provider, outcome).Inc()
	if took > 0 {
		m.attemptDuration.WithLabelValues(provider).Observe(took.Seconds())
	}
}

// Source records which source answered a response.
func (m *Metrics) Source(endpoint, source string) {
	m.sources.WithLabelValues(endpoint, source).Inc()
}

// CacheLookup records a response cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

// Request records one inbound request.
func (m *Metrics) Request(method, route string, status int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
