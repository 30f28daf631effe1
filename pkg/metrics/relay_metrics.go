// Package metrics provides Prometheus metrics for the relay's outbound integrations.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbound call and mail dispatch metrics
var (
	// outboundRequestsTotal records the total number of outbound calls.
	// Labels:
	//   - target: Integration name (e.g., "zoom_hook", "jira_hook", "slack")
	//   - outcome: Call outcome (e.g., "success", "rejected", "error")
	outboundRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_outbound_requests_total",
			Help: "Total number of outbound integration calls",
		},
		[]string{"target", "outcome"},
	)

	// outboundDuration records the duration of outbound calls.
	// Buckets: 50ms .. 30s
	outboundDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_outbound_duration_seconds",
			Help:    "Duration of outbound integration calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"target"},
	)

	// mailDispatchTotal records background mail send results.
	// Labels:
	//   - result: "sent", "token_error", "send_error"
	mailDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_mail_dispatch_total",
			Help: "Total number of contact mails dispatched, by result",
		},
		[]string{"result"},
	)

	// mailInFlight tracks contact mails currently being sent.
	mailInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_mail_in_flight",
			Help: "Number of contact mails currently being sent",
		},
	)
)

func init() {
	prometheus.MustRegister(outboundRequestsTotal)
	prometheus.MustRegister(outboundDuration)
	prometheus.MustRegister(mailDispatchTotal)
	prometheus.MustRegister(mailInFlight)
}

// RecordOutbound records an outbound call with its outcome and duration.
func RecordOutbound(target, outcome string, durationSeconds float64) {
	outboundRequestsTotal.WithLabelValues(target, outcome).Inc()
	outboundDuration.WithLabelValues(target).Observe(durationSeconds)
}

// RecordMailDispatch records the result of a background mail send.
func RecordMailDispatch(result string) {
	mailDispatchTotal.WithLabelValues(result).Inc()
}

// MailStarted marks a mail send as in flight.
func MailStarted() {
	mailInFlight.Inc()
}

// MailFinished marks a mail send as finished.
func MailFinished() {
	mailInFlight.Dec()
}
