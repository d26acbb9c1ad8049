// Package metrics exposes dispatch metrics through Prometheus. All
// collectors live on a private registry so multiple engines in one
// process never collide.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	LatencyBuckets []float64
}

type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	shortCircuits   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

func New(cfg Config) *Metrics {
	buckets := cfg.LatencyBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_requests_total",
			Help: "Requests dispatched, by route, method and response status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_request_duration_seconds",
			Help:    "Request handling latency.",
			Buckets: buckets,
		}, []string{"route", "method"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stratus_requests_in_flight",
			Help: "Requests currently inside the dispatcher.",
		}, []string{"route"}),
		shortCircuits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_middleware_short_circuits_total",
			Help: "Requests answered by a middleware before reaching the handler.",
		}, []string{"route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_errors_total",
			Help: "Dispatch failures, by route and failure kind.",
		}, []string{"route", "kind"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.inFlight,
		m.shortCircuits,
		m.errorsTotal,
	)

	return m
}

// RecordRequest counts a completed request and observes its latency.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// InFlightRequests marks a request in flight until the returned
// function runs.
func (m *Metrics) InFlightRequests(route string) func() {
	gauge := m.inFlight.WithLabelValues(route)
	gauge.Inc()
	return gauge.Dec
}

// RecordShortCircuit counts a middleware short-circuit.
func (m *Metrics) RecordShortCircuit(route string) {
	m.shortCircuits.WithLabelValues(route).Inc()
}

// RecordError counts a dispatch failure.
func (m *Metrics) RecordError(route, kind string) {
	m.errorsTotal.WithLabelValues(route, kind).Inc()
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
