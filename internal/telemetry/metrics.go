// Package telemetry holds the relay's Prometheus collectors and OpenTelemetry setup.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "identity_bridge"

// Metrics groups the collectors the relay records into.
type Metrics struct {
	registry *prometheus.Registry

	DownstreamRequests *prometheus.CounterVec
	DownstreamDuration *prometheus.HistogramVec
	HookRequests       *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry together with
// the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DownstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downstream_requests_total",
				Help:      "Account API calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),

		DownstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "downstream_request_duration_seconds",
				Help:      "Account API call latency.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		HookRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hook_requests_total",
				Help:      "Webhook invocations by hook and response status.",
			},
			[]string{"hook", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DownstreamRequests,
		m.DownstreamDuration,
		m.HookRequests,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDownstream records one account API call. A nil receiver is a no-op
// so callers need not check whether metrics are enabled.
func (m *Metrics) ObserveDownstream(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DownstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.DownstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveHook records one webhook response.
func (m *Metrics) ObserveHook(hook string, status int) {
	if m == nil {
		return
	}
	m.HookRequests.WithLabelValues(hook, strconv.Itoa(status)).Inc()
}
