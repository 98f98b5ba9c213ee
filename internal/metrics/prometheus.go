package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publishing metrics
var (
	IssuesPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_issues_published_total",
			Help: "Total number of newsletter issues accepted for delivery",
		},
	)

	IdempotentReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_idempotent_replays_total",
			Help: "Total number of publish requests answered from the idempotency store",
		},
	)

	DeliveryTasksEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_tasks_enqueued_total",
			Help: "Total number of delivery tasks created by issue fan-out",
		},
	)
)

// Delivery worker metrics
var (
	DeliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_attempts_total",
			Help: "Total number of delivery attempts by outcome",
		},
		[]string{"outcome"}, // sent, retried, exhausted, permanent_failure
	)

	DeliverySendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_send_duration_seconds",
			Help:    "Duration of a single email send attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeliveryTasksReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_tasks_reaped_total",
			Help: "Total number of stuck in-flight tasks reverted to pending by the reaper",
		},
	)

	DeliveryQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "delivery_queue_depth",
			Help: "Number of delivery tasks by status",
		},
		[]string{"status"},
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_total",
			Help: "Total number of subscription events",
		},
		[]string{"event"}, // created, confirmed, duplicate, invalid
	)
)
