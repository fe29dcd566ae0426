// internal/metrics/metrics.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trademark"

var (
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Committed application status transitions.",
	}, []string{"from", "to", "automated"})

	TransitionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transition_rejections_total",
		Help:      "Transition requests refused before persistence, by reason.",
	}, []string{"reason"})

	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_deliveries_total",
		Help:      "Notification results by channel and outcome.",
	}, []string{"channel", "outcome"})

	NotificationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_attempts",
		Help:      "Delivery attempts spent per notification result.",
		Buckets:   []float64{0, 1, 2, 3, 5},
	})

	PaymentConfirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_confirmations_total",
		Help:      "Recorded payment confirmations by stage and resulting status.",
	}, []string{"stage", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

func ObserveTransition(from, to string, automated bool) {
	StatusTransitions.WithLabelValues(from, to, strconv.FormatBool(automated)).Inc()
}
