// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "procurement"

// Metrics groups the counters recorded by the services.
type Metrics struct {
	registry *prometheus.Registry

	PhaseTransitions    *prometheus.CounterVec
	EngineErrors        *prometheus.CounterVec
	CatalogMutations    *prometheus.CounterVec
	TypeResolutions     *prometheus.CounterVec
	NotificationsQueued prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase transitions applied to contracts.",
		}, []string{"transition", "phase"}),
		EngineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Rejected engine operations by error kind and code.",
		}, []string{"kind", "code"}),
		CatalogMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_mutations_total",
			Help:      "Committed changes to contract types, amount ranges and phases.",
		}, []string{"entity", "action"}),
		TypeResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_type_resolutions_total",
			Help:      "Contract type resolutions by outcome.",
		}, []string{"outcome"}),
		NotificationsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_notifications_created_total",
			Help:      "Due-date notifications recorded for phases in progress.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PhaseTransitions,
		m.EngineErrors,
		m.CatalogMutations,
		m.TypeResolutions,
		m.NotificationsQueued,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Nil-safe recorders so services can run without metrics in tests.

func (m *Metrics) Transition(transition, phase string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(transition, phase).Inc()
}

func (m *Metrics) EngineError(kind, code string) {
	if m == nil {
		return
	}
	m.EngineErrors.WithLabelValues(kind, code).Inc()
}

func (m *Metrics) CatalogMutation(entity, action string) {
	if m == nil {
		return
	}
	m.CatalogMutations.WithLabelValues(entity, action).Inc()
}

func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.TypeResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotificationsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.NotificationsQueued.Add(float64(n))
}

func (m *Metrics) Request(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
