// Package metrics holds the Prometheus collectors for the gateway and the
// booking workflow. Each Metrics owns its registry so tests can build as
// many as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's collectors.
type Metrics struct {
	Registry *prometheus.Registry

	GatewayRequests *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	BookingOutcomes *prometheus.CounterVec
	AIRequests      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventhub",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Backend requests by operation and HTTP status (0 for transport failures).",
		}, []string{"operation", "status"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventhub",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		BookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventhub",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Booking attempts by terminal result.",
		}, []string{"result"}),
		AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventhub",
			Subsystem: "advisor",
			Name:      "requests_total",
			Help:      "AI advisory calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	m.Registry.MustRegister(m.GatewayRequests, m.GatewayDuration, m.BookingOutcomes, m.AIRequests)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
