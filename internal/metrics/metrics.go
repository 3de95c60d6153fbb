package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonvox",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	dialogTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonvox",
			Name:      "dialog_turns_total",
			Help:      "Dialog turns handled, by session step.",
		},
		[]string{"step"},
	)

	humanTransfers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonvox",
			Name:      "human_transfers_total",
			Help:      "Calls handed off to a human.",
		},
	)

	bookingsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonvox",
			Name:      "bookings_finalized_total",
			Help:      "Bookings confirmed through the web handoff.",
		},
	)

	smsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonvox",
			Name:      "sms_sent_total",
			Help:      "Text messages handed to the notification gateway.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, dialogTurns, humanTransfers, bookingsFinalized, smsSent)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncTurn counts a handled dialog turn for the step it arrived in.
func IncTurn(step string) {
	dialogTurns.WithLabelValues(step).Inc()
}

// IncHumanTransfer counts a transfer-and-dial outcome.
func IncHumanTransfer() {
	humanTransfers.Inc()
}

// IncBookingFinalized counts a completed booking.
func IncBookingFinalized() {
	bookingsFinalized.Inc()
}

// IncSMSSent counts an outbound text message.
func IncSMSSent() {
	smsSent.Inc()
}
