package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the TaskFlow client.
type Metrics struct {
	registry *prometheus.Registry

	// Gateway metrics.
	APIRequestsTotal      *prometheus.CounterVec
	APIRequestDuration    *prometheus.HistogramVec
	APIRequestErrorsTotal *prometheus.CounterVec

	// Session lifecycle.
	SessionEventsTotal *prometheus.CounterVec

	StartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_api_requests_total",
			Help: "Total number of backend API requests that received a response.",
		}, []string{"op", "method", "status_code"}),

		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskflow_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),

		APIRequestErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_api_request_errors_total",
			Help: "Total number of backend API requests that failed without a response, by error type.",
		}, []string{"op", "error_type"}),

		SessionEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_session_events_total",
			Help: "Total number of session lifecycle events.",
		}, []string{"event"}),

		StartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskflow_start_time_seconds",
			Help: "Unix timestamp when the process started.",
		}),
	}

	reg.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.APIRequestErrorsTotal,
		m.SessionEventsTotal,
		m.StartTime,
	)

	m.StartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterStoreCollector registers a collector for local store connection stats.
func (m *Metrics) RegisterStoreCollector(statFunc StoreStatFunc) {
	m.registry.MustRegister(NewStoreCollector(statFunc))
}

// ObserveRequest records a backend response.
func (m *Metrics) ObserveRequest(op, method string, statusCode int, seconds float64) {
	m.APIRequestsTotal.WithLabelValues(op, method, strconv.Itoa(statusCode)).Inc()
	m.APIRequestDuration.WithLabelValues(op).Observe(seconds)
}

// IncRequestError records a request that got no response.
func (m *Metrics) IncRequestError(op, errorType string) {
	m.APIRequestErrorsTotal.WithLabelValues(op, errorType).Inc()
}

// IncSessionEvent records a session lifecycle event.
func (m *Metrics) IncSessionEvent(event string) {
	m.SessionEventsTotal.WithLabelValues(event).Inc()
}
