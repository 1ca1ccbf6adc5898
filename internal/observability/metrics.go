package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	errorCount       *prometheus.CounterVec
	ticketOutcomes   *prometheus.CounterVec
	ticketEvents     *prometheus.CounterVec
	analysisCalls    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	notifications    *prometheus.CounterVec
	webhookTasks     *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"method", "path", "status"}),
		errorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by error code",
		}, []string{"method", "path", "code"}),
		ticketOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_create_total",
			Help: "Ticket creation attempts by outcome",
		}, []string{"outcome"}),
		ticketEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_events_total",
			Help: "Ticket domain events published",
		}, []string{"type"}),
		analysisCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_calls_total",
			Help: "Analysis provider calls by outcome",
		}, []string{"outcome"}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_call_duration_seconds",
			Help:    "Analysis provider call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "confirmation_emails_total",
			Help: "Confirmation email attempts by outcome",
		}, []string{"outcome"}),
		webhookTasks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_tasks_total",
			Help: "Webhook notification tasks by outcome",
		}, []string{"outcome"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "webhook_queue_depth",
			Help: "Webhook tasks waiting for a worker",
		}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RecordRequest observes a finished HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(method, path, code).Inc()
}

// RecordTicketOutcome counts created, duplicate and failed creations.
func (m *Metrics) RecordTicketOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ticketOutcomes.WithLabelValues(outcome).Inc()
}

// RecordTicketEvent counts a published ticket event.
func (m *Metrics) RecordTicketEvent(eventType string) {
	if m == nil {
		return
	}
	m.ticketEvents.WithLabelValues(eventType).Inc()
}

// RecordAnalysisCall observes one provider call.
func (m *Metrics) RecordAnalysisCall(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.analysisCalls.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(duration.Seconds())
}

// RecordNotification counts a confirmation email attempt.
func (m *Metrics) RecordNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// RecordWebhookTask counts a webhook task outcome.
func (m *Metrics) RecordWebhookTask(outcome string) {
	if m == nil {
		return
	}
	m.webhookTasks.WithLabelValues(outcome).Inc()
}

// SetQueueDepth reports the number of queued webhook tasks.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
