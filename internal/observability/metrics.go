package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus collectors. Each instance has its
// own registry so that several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
	ticketActions *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweptTickets  prometheus.Counter
	lastSweep     prometheus.Gauge
}

// NewMetrics registers all collectors under the given prefix.
func NewMetrics(prefix string) *Metrics {
	if prefix == "" {
		prefix = "hubops"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_errors_total",
			Help: "Total number of error responses by domain error code",
		}, []string{"method", "path", "code"}),
		ticketActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ticket_actions_total",
			Help: "Ticket lifecycle actions by outcome",
		}, []string{"action", "outcome"}),
		sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_scheduler_sweeps_total",
			Help: "Recurring task sweeps by result",
		}, []string{"result"}),
		sweptTickets: factory.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_scheduler_tickets_created_total",
			Help: "Tickets materialized from recurring tasks",
		}),
		lastSweep: factory.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_scheduler_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sweep",
		}),
	}
}

// RecordRequest observes one finished HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// TicketAction counts a lifecycle action attempt.
func (m *Metrics) TicketAction(action, outcome string) {
	if m == nil {
		return
	}
	m.ticketActions.WithLabelValues(action, outcome).Inc()
}

// SweepCompleted records a scheduler sweep.
func (m *Metrics) SweepCompleted(processed int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.sweeps.WithLabelValues("error").Inc()
		return
	}
	m.sweeps.WithLabelValues("ok").Inc()
	m.sweptTickets.Add(float64(processed))
	m.lastSweep.SetToCurrentTime()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
