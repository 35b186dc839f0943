package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifyhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifyhub_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// NotificationsQueued counts log rows created and handed to the queue.
	NotificationsQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifyhub_notifications_queued_total",
			Help: "Number of notifications persisted and published",
		},
		[]string{"channel"},
	)

	PublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifyhub_publish_failures_total",
			Help: "Number of queue messages the transport rejected",
		},
		[]string{"channel"},
	)

	// DeliveryResults counts worker outcomes: sent, failed, duplicate, missing, conflict.
	DeliveryResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifyhub_delivery_results_total",
			Help: "Outcome of each consumed queue message",
		},
		[]string{"channel", "result"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifyhub_delivery_duration_seconds",
			Help:    "Time spent in the external transport call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	UsageResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifyhub_usage_resets_total",
			Help: "Number of API key usage counters reset",
		},
	)

	StaleLogsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifyhub_stale_logs_failed_total",
			Help: "Number of logs failed by the stale PROCESSING sweep",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		HTTPRequests,
		RequestDuration,
		NotificationsQueued,
		PublishFailures,
		DeliveryResults,
		DeliveryDuration,
		UsageResets,
		StaleLogsFailed,
	)
}
