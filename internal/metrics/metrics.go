// Package metrics exposes the scorekeeper's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scorekeeper"

type Metrics struct {
	registry *prometheus.Registry

	liveWrites       *prometheus.CounterVec
	sessionsRecorded prometheus.Counter
	sessionsDeleted  prometheus.Counter
	staleRejected    prometheus.Counter
	subscribers      prometheus.Gauge
	apiErrors        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		liveWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_state_writes_total",
			Help:      "Live game documents written, by access mode.",
		}, []string{"mode"}),
		sessionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_recorded_total",
			Help:      "Completed games stored.",
		}),
		sessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_deleted_total",
			Help:      "Completed games deleted by league admins.",
		}),
		staleRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_state_stale_rejected_total",
			Help:      "Incoming live game documents discarded for being older than local state.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_state_subscribers",
			Help:      "Open websocket subscriptions to live game changes.",
		}),
		apiErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Error responses written by the API, by status code.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.liveWrites,
		m.sessionsRecorded,
		m.sessionsDeleted,
		m.staleRejected,
		m.subscribers,
		m.apiErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) LiveStateWritten(mode string) {
	if m == nil {
		return
	}
	m.liveWrites.WithLabelValues(mode).Inc()
}

func (m *Metrics) SessionRecorded() {
	if m == nil {
		return
	}
	m.sessionsRecorded.Inc()
}

func (m *Metrics) SessionDeleted() {
	if m == nil {
		return
	}
	m.sessionsDeleted.Inc()
}

func (m *Metrics) StaleStateRejected() {
	if m == nil {
		return
	}
	m.staleRejected.Inc()
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

func (m *Metrics) APIError(status string) {
	if m == nil {
		return
	}
	m.apiErrors.WithLabelValues(status).Inc()
}
