package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records ingestion outcomes for the CRM gateway.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	violations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers the gateway metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_events_received_total",
		Help: "Inbound CRM webhook deliveries by event type.",
	}, []string{"event_type"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_events_outcome_total",
		Help: "Terminal outcome per delivery (processed, replayed, failed, drift, ignored).",
	}, []string{"event_type", "outcome"})
	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_contract_violations_total",
		Help: "Contract violations recorded by type.",
	}, []string{"violation_type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_event_processing_seconds",
		Help:    "End-to-end processing duration per delivery.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(received, outcomes, violations, duration)
	return &WebhookMetrics{
		received:   received,
		outcomes:   outcomes,
		violations: violations,
		duration:   duration,
	}
}

// IncReceived counts one inbound delivery.
func (m *WebhookMetrics) IncReceived(eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncOutcome counts the terminal outcome for a delivery.
func (m *WebhookMetrics) IncOutcome(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncViolation counts one recorded contract violation.
func (m *WebhookMetrics) IncViolation(violationType string) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.WithLabelValues(normalizeLabel(violationType)).Inc()
}

// ObserveDuration records end-to-end processing time for a delivery.
func (m *WebhookMetrics) ObserveDuration(eventType string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(eventType)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
