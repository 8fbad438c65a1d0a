package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrderTransitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_applied_total",
			Help: "Total number of committed order status transitions",
		},
		[]string{"status"},
	)

	OrderTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_rejected_total",
			Help: "Total number of rejected transition requests",
		},
		[]string{"error_code"},
	)

	NotificationChannelAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_channel_attempts_total",
			Help: "Total notification delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	NotificationDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_dispatch_duration_seconds",
			Help: "Duration of a full fan-out dispatch in seconds",
		},
		[]string{"type"},
	)
)
