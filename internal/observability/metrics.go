// Package observability wires Prometheus collectors for HTTP traffic and the
// case and ledger domains.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/pswdo-albay/aics/internal/jobs"
	"github.com/pswdo-albay/aics/internal/ledger"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	ledgerEntries   *prometheus.CounterVec
	ledgerAmount    *prometheus.CounterVec
	postAudit       prometheus.Counter
	jobs            *jobmetrics.Metrics
}

// NewMetrics initialises the registry with HTTP, domain and job collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aics_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aics_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aics_case_transitions_total",
		Help: "Case transition attempts by edge and outcome.",
	}, []string{"from", "to", "outcome"})
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aics_ledger_entries_total",
		Help: "Ledger entries appended by fund source and kind.",
	}, []string{"source", "kind"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aics_ledger_amount_pesos_total",
		Help: "Pesos moved through the ledger by fund source and kind.",
	}, []string{"source", "kind"})
	postAudit := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aics_ledger_post_audit_entries_total",
		Help: "Replenishments flagged for post-audit review.",
	})
	registry.MustRegister(requests, duration, transitions, entries, amount, postAudit)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		transitions:     transitions,
		ledgerEntries:   entries,
		ledgerAmount:    amount,
		postAudit:       postAudit,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RecordTransition counts a case transition attempt.
func (m *Metrics) RecordTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, outcome).Inc()
}

// LedgerAppended counts appended ledger entries.
func (m *Metrics) LedgerAppended(_ context.Context, entries []ledger.Entry) {
	if m == nil {
		return
	}
	for _, e := range entries {
		m.ledgerEntries.WithLabelValues(string(e.Source), string(e.Kind)).Inc()
		m.ledgerAmount.WithLabelValues(string(e.Source), string(e.Kind)).Add(float64(e.Amount))
		if e.RequiresPostAudit {
			m.postAudit.Inc()
		}
	}
}

// Jobs returns the background job collectors sharing this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
