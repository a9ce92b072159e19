package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts merchant notification delivery attempts by outcome.
type WebhookMetrics struct {
	attempts *prometheus.CounterVec
}

// NewWebhookMetrics registers the delivery counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_delivery_attempts",
		Help: "Webhook delivery attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(attempts)
	return &WebhookMetrics{attempts: attempts}
}

// IncAttempt records one delivery attempt with the given outcome label.
func (w *WebhookMetrics) IncAttempt(outcome string) {
	if w == nil || w.attempts == nil {
		return
	}
	w.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}
