package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they need.
// All recording methods accept a nil receiver.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	assignmentOps       *prometheus.CounterVec
	availabilityQueries *prometheus.CounterVec
	notificationSends   *prometheus.CounterVec
	loadCorrections     prometheus.Counter
}

func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"method", "route"},
		),
		assignmentOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "nurse_assignment_operations_total",
				Help:        "Assignment workflow calls by operation and outcome",
				ConstLabels: labels,
			},
			[]string{"operation", "outcome"},
		),
		availabilityQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "nurse_availability_queries_total",
				Help:        "Nurse availability queries by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		notificationSends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "notification_sends_total",
				Help:        "Push messages by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		loadCorrections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "nurse_load_corrections_total",
				Help:        "Nurse load counters rewritten by reconciliation",
				ConstLabels: labels,
			},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.assignmentOps,
		m.availabilityQueries,
		m.notificationSends,
		m.loadCorrections,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Assignment(operation, outcome string) {
	if m == nil {
		return
	}
	m.assignmentOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Availability(outcome string) {
	if m == nil {
		return
	}
	m.availabilityQueries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotificationSent(outcome string) {
	if m == nil {
		return
	}
	m.notificationSends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LoadCorrected(n int) {
	if m == nil {
		return
	}
	m.loadCorrections.Add(float64(n))
}
