package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stockMoved      *prometheus.CounterVec
	opFailures      *prometheus.CounterVec
	invoices        *prometheus.CounterVec
	revenue         *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and ledger metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mart_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mart_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	moved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mart_stock_moved_units_total",
		Help: "Units moved by committed stock changes, by change type.",
	}, []string{"change_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mart_operation_failures_total",
		Help: "Rejected ledger operations by operation and error kind.",
	}, []string{"operation", "kind"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mart_invoices_total",
		Help: "Invoices recorded by source.",
	}, []string{"source"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mart_invoice_amount_total",
		Help: "Invoiced amount after discounts, by source.",
	}, []string{"source"})
	registry.MustRegister(requests, duration, moved, failures, invoices, revenue)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		stockMoved:      moved,
		opFailures:      failures,
		invoices:        invoices,
		revenue:         revenue,
	}
}

// Handler returns the http.Handler serving /metrics.
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

// StockMoved counts units of a committed stock change.
func (m *Metrics) StockMoved(changeType string, qty int64) {
	if m == nil {
		return
	}
	if qty < 0 {
		qty = -qty
	}
	m.stockMoved.WithLabelValues(changeType).Add(float64(qty))
}

// OperationFailed counts a rejected operation by its error kind.
func (m *Metrics) OperationFailed(op string, err error) {
	if m == nil {
		return
	}
	m.opFailures.WithLabelValues(op, shared.KindLabel(err)).Inc()
}

// InvoiceRecorded counts an invoice and its amount.
func (m *Metrics) InvoiceRecorded(source string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.invoices.WithLabelValues(source).Inc()
	m.revenue.WithLabelValues(source).Add(amount.InexactFloat64())
}

// Registerer exposes the registry so job metrics share the /metrics endpoint.
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
