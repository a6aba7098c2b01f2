package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service collectors on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec

	ticketsCreated   prometheus.Counter
	assignments      *prometheus.CounterVec
	routingGaps      *prometheus.CounterVec
	feedback         *prometheus.CounterVec
	reconcileRepairs prometheus.Counter
	subscriptions    prometheus.Gauge
	subscriptionDrop prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "Error responses by error code",
		}, []string{"method", "route", "code"}),
		ticketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_tickets_created_total",
			Help: "Tickets opened by end users",
		}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_assignments_total",
			Help: "Assignment records created, by priority",
		}, []string{"priority"}),
		routingGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_routing_gaps_total",
			Help: "Assignments refused because the category has no mapped role",
		}, []string{"category"}),
		feedback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_feedback_total",
			Help: "Feedback submissions by rating band and outcome",
		}, []string{"band", "outcome"}),
		reconcileRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_reconcile_repairs_total",
			Help: "Tickets brought back in line with their assignment",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "helpdesk_live_subscriptions",
			Help: "Open view subscriptions",
		}),
		subscriptionDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_live_overflow_total",
			Help: "Change notifications dropped on full subscriber buffers",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.ticketsCreated,
		m.assignments,
		m.routingGaps,
		m.feedback,
		m.reconcileRepairs,
		m.subscriptions,
		m.subscriptionDrop,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) TicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

func (m *Metrics) AssignmentCreated(priority string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(priority).Inc()
}

func (m *Metrics) RoutingGap(category string) {
	if m == nil {
		return
	}
	m.routingGaps.WithLabelValues(category).Inc()
}

// FeedbackSubmitted records a submission; outcome is "created" or "updated".
func (m *Metrics) FeedbackSubmitted(band, outcome string) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(band, outcome).Inc()
}

func (m *Metrics) ReconcileRepaired() {
	if m == nil {
		return
	}
	m.reconcileRepairs.Inc()
}

// SubscriptionOpened and SubscriptionClosed track the live gauge.
func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *Metrics) SubscriptionOverflow() {
	if m == nil {
		return
	}
	m.subscriptionDrop.Inc()
}
