// Package metrics defines the Prometheus collectors of the router.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the router's collectors.
type Metrics struct {
	DocumentsTotal      *prometheus.CounterVec
	DispatchDuration    *prometheus.HistogramVec
	OracleFailuresTotal *prometheus.CounterVec
	AuditFailuresTotal  prometheus.Counter
	AnomaliesTotal      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrouter_documents_total",
				Help: "Dispatched documents by format, intent and status.",
			},
			[]string{"format", "intent", "status"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docrouter_dispatch_duration_seconds",
				Help:    "End-to-end dispatch latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"format"},
		),
		OracleFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrouter_oracle_failures_total",
				Help: "Degraded oracle calls by operation and failure reason.",
			},
			[]string{"operation", "failure"},
		),
		AuditFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docrouter_audit_persist_failures_total",
				Help: "Documents aborted because the audit log could not be written.",
			},
		),
		AnomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrouter_schema_anomalies_total",
				Help: "Schema anomalies reported by intent.",
			},
			[]string{"intent"},
		),
	}
	reg.MustRegister(
		m.DocumentsTotal,
		m.DispatchDuration,
		m.OracleFailuresTotal,
		m.AuditFailuresTotal,
		m.AnomaliesTotal,
	)
	return m
}

// ObserveDocument records one finished dispatch.
func (m *Metrics) ObserveDocument(format, intent, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(format, intent, status).Inc()
	m.DispatchDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// OracleFailure counts a degraded oracle call. Its signature fits
// oracle.WithFailureHook.
func (m *Metrics) OracleFailure(operation, failure string) {
	if m == nil {
		return
	}
	m.OracleFailuresTotal.WithLabelValues(operation, failure).Inc()
}

// AuditFailure counts a persistence failure.
func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}
	m.AuditFailuresTotal.Inc()
}

// Anomalies adds n schema anomalies for intent.
func (m *Metrics) Anomalies(intent string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.AnomaliesTotal.WithLabelValues(intent).Add(float64(n))
}

// Handler returns the scrape handler for gatherer, or the default one when nil.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
