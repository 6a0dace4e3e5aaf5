// Package metrics — Prometheus-метрики движка заказов и HTTP-слоя.
// Методы допускают nil-получатель, чтобы тесты могли обходиться без реестра.
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

	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	gatewayCalls       *prometheus.CounterVec
	outbox             *prometheus.CounterVec
	auditDropped       prometheus.Counter
	ledgerUnrecorded   *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order operations by outcome (committed, replay or error code).",
		}, []string{"operation", "outcome"}),
		transitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "order_transition_duration_seconds",
			Help:    "Latency of a single order transition including gateway call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "Payment gateway calls by operation and result.",
		}, []string{"operation", "result"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox relay results.",
		}, []string{"result"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_stream_dropped_total",
			Help: "Audit entries dropped for slow stream subscribers.",
		}),
		ledgerUnrecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_unrecorded_gateway_ops_total",
			Help: "Gateway operations that succeeded but could not be written to the ledger.",
		}, []string{"operation"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions, m.transitionDuration, m.gatewayCalls, m.outbox, m.auditDropped, m.ledgerUnrecorded,
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
	)
	return m
}

// Handler отдаёт метрики собственного реестра.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveTransition(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, outcome).Inc()
	m.transitionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveGateway(operation, result string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) OutboxResult(result string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// LedgerUnrecorded отмечает операцию шлюза, для которой журнал требует сверки.
func (m *Metrics) LedgerUnrecorded(operation string) {
	if m == nil {
		return
	}
	m.ledgerUnrecorded.WithLabelValues(operation).Inc()
}

func (m *Metrics) HTTPStarted() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

func (m *Metrics) HTTPFinished(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
