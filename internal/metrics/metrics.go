// Package metrics holds the prometheus collectors of the service. All
// methods are safe on a nil *Metrics so callers may run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	apiInflight     prometheus.Gauge
	rateLimited     prometheus.Counter
	ruleRuns        *prometheus.CounterVec
	inconsistencies *prometheus.CounterVec
	repairRuns      *prometheus.CounterVec
	repairFixes     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_api_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asso_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asso_api_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asso_api_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		ruleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_consistency_rule_runs_total",
			Help: "Consistency rule invocations by operation and outcome.",
		}, []string{"op", "outcome"}),
		inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_inconsistencies_total",
			Help: "Operations that left denormalized data out of step.",
		}, []string{"op"}),
		repairRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_repair_runs_total",
			Help: "Read-repair runs by outcome.",
		}, []string{"outcome"}),
		repairFixes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asso_repair_fixes_total",
			Help: "Documents rewritten by read-repair, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight, m.rateLimited,
		m.ruleRuns, m.inconsistencies, m.repairRuns, m.repairFixes,
	)
	return m
}

// Handler serves the private registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncRateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

// ObserveRule counts one rule invocation; err == nil is a success.
func (m *Metrics) ObserveRule(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ruleRuns.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncInconsistency(op string) {
	if m != nil {
		m.inconsistencies.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) ObserveRepair(err error, fixes map[string]int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.repairRuns.WithLabelValues(outcome).Inc()
	for kind, n := range fixes {
		if n > 0 {
			m.repairFixes.WithLabelValues(kind).Add(float64(n))
		}
	}
}
