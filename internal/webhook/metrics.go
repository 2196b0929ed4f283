package webhook

import "github.com/prometheus/client_golang/prometheus"

// Delivery outcomes recorded in the deliveries counter.
const (
	OutcomeAccepted       = "accepted"
	OutcomeIgnored        = "ignored"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeTooLarge       = "too_large"
	OutcomeHandlerError   = "handler_error"
)

// Metrics counts webhook deliveries by outcome.
type Metrics struct {
	deliveries *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runnerpool",
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries received, by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.deliveries)
	}
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}
