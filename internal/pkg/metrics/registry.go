package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request Pipeline Metrics
var (
	// APIRequests tracks outgoing API requests by method and status
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerline_client_requests_total",
			Help: "Total outgoing API requests by method and status",
		},
		[]string{"method", "status"},
	)

	// APIRequestDuration tracks outgoing request latency
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:                            "ledgerline_client_request_duration_ms",
			Help:                            "Outgoing API request duration in milliseconds",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
		[]string{"method"},
	)

	// TokenRefreshes tracks refresh cycles by outcome
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerline_client_token_refreshes_total",
			Help: "Total token refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	// QueuedRequests tracks requests suspended behind an in-flight refresh
	QueuedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerline_client_queued_requests_total",
			Help: "Total requests queued behind an in-flight token refresh",
		},
	)

	// QueueDepth observes the queue depth at each enqueue
	QueueDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:                            "ledgerline_client_refresh_queue_depth",
			Help:                            "Replay queue depth observed when a request is enqueued",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
	)

	// ReplayedRequests tracks replay outcomes after a refresh settles
	ReplayedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerline_client_replayed_requests_total",
			Help: "Total replayed requests by outcome (success, error, rejected)",
		},
		[]string{"outcome"},
	)
)
