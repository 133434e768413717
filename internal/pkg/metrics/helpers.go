package metrics

import (
	"strconv"
	"time"
)

// RecordRequest records one outgoing API request consistently.
// status is the HTTP status code, or 0 when the transport failed before a
// response was received.
func RecordRequest(method string, status int, duration time.Duration, err error) {
	label := strconv.Itoa(status)
	if err != nil && status == 0 {
		label = "transport_error"
	}
	APIRequests.WithLabelValues(method, label).Inc()
	APIRequestDuration.WithLabelValues(method).Observe(float64(duration.Milliseconds()))
}

// RecordRefresh records the outcome of one refresh cycle
// ("success", "failure", or "store_error").
func RecordRefresh(outcome string) {
	TokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordQueued records a request suspended behind an in-flight refresh and
// the queue depth it observed.
func RecordQueued(depth int) {
	QueuedRequests.Inc()
	QueueDepth.Observe(float64(depth))
}

// RecordReplay records the outcome of one queued request after its refresh
// cycle settled ("success", "error", or "rejected").
func RecordReplay(outcome string) {
	ReplayedRequests.WithLabelValues(outcome).Inc()
}
