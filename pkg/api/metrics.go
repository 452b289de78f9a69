package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Edit operation metrics
	editOperationsTotal   *prometheus.CounterVec
	editOperationDuration *prometheus.HistogramVec
	indexRebuildsTotal    prometheus.Counter

	// Session metrics
	sessionsOpen      prometheus.Gauge
	sessionBytesTotal prometheus.Gauge

	// Transport metrics
	sendsTotal *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapbend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pcapbend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pcapbend_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		// Edit operation metrics
		editOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapbend_edit_operations_total",
				Help: "Total number of packet edit operations",
			},
			[]string{"operation", "status"},
		),

		editOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pcapbend_edit_operation_duration_seconds",
				Help:    "Packet edit operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"operation"},
		),

		indexRebuildsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pcapbend_index_rebuilds_total",
				Help: "Total number of block index rebuilds",
			},
		),

		// Session metrics
		sessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pcapbend_sessions_open",
				Help: "Number of open editing sessions",
			},
		),

		sessionBytesTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pcapbend_session_bytes",
				Help: "Total encoded size of all captures held in sessions",
			},
		),

		// Transport metrics
		sendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapbend_sends_total",
				Help: "Total number of captures sent to a consumer",
			},
			[]string{"kind", "status"},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapbend_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcapbend_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

func statusLabel(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEditOperation records one packet edit
func (m *Metrics) RecordEditOperation(operation string, success bool, duration time.Duration) {
	m.editOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
	m.editOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIndexRebuilds adds n block index rebuilds
func (m *Metrics) RecordIndexRebuilds(n int) {
	if n > 0 {
		m.indexRebuildsTotal.Add(float64(n))
	}
}

// UpdateSessionStats updates session statistics
func (m *Metrics) UpdateSessionStats(sessions int, bytes int64) {
	m.sessionsOpen.Set(float64(sessions))
	m.sessionBytesTotal.Set(float64(bytes))
}

// RecordSend records a capture sent to a consumer
func (m *Metrics) RecordSend(kind string, success bool) {
	m.sendsTotal.WithLabelValues(kind, statusLabel(success)).Inc()
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	m.healthChecksTotal.WithLabelValues(statusLabel(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Record request in flight
		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw, ok := w.(*responseWriter)
			if !ok {
				rw = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
