// Package metrics exposes Prometheus collectors for the twin.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for intents.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
)

// Metrics owns a private registry so several twins can share a process.
type Metrics struct {
	reg *prometheus.Registry

	intents     *prometheus.CounterVec
	httpTotal   *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
	sessions    prometheus.Gauge
	events      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrotwin",
			Name:      "intents_total",
			Help:      "Session intents by kind and outcome.",
		}, []string{"kind", "outcome"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrotwin",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrotwin",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agrotwin",
			Name:      "sessions_live",
			Help:      "Sessions currently held in memory.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrotwin",
			Name:      "events_published_total",
			Help:      "Domain events handed to publishers, by type.",
		}, []string{"type"}),
	}
	m.reg.MustRegister(
		m.intents, m.httpTotal, m.httpLatency, m.sessions, m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Intent counts one intent.
func (m *Metrics) Intent(kind, outcome string) {
	m.intents.WithLabelValues(kind, outcome).Inc()
}

// Event counts one published event.
func (m *Metrics) Event(typ string) {
	m.events.WithLabelValues(typ).Inc()
}

// SetSessions records the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// ObserveRequest satisfies twincore.Observer.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry is exposed for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
