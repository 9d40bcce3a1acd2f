package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records the remote-call activity of the commerce client.
type ClientMetrics struct {
	pollDuration *prometheus.HistogramVec
	pollSuccess  *prometheus.CounterVec
	pollFailure  *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	availability *prometheus.CounterVec
}

// NewClientMetrics registers the client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_poll_duration_seconds",
		Help:    "Duration of notification poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	pollSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_poll_success",
		Help: "Successful notification poll cycles.",
	}, []string{"kind"})
	pollFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_poll_failure",
		Help: "Failed notification poll cycles.",
	}, []string{"kind"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submission attempts by aggregate outcome.",
	}, []string{"outcome"})
	availability := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_checks_total",
		Help: "Booking-date availability checks by result.",
	}, []string{"result"})
	reg.MustRegister(pollDuration, pollSuccess, pollFailure, submissions, availability)
	return &ClientMetrics{
		pollDuration: pollDuration,
		pollSuccess:  pollSuccess,
		pollFailure:  pollFailure,
		submissions:  submissions,
		availability: availability,
	}
}

// ObservePollDuration records the duration of one poll cycle for a feed kind.
func (c *ClientMetrics) ObservePollDuration(kind string, duration time.Duration) {
	if c == nil || c.pollDuration == nil {
		return
	}
	c.pollDuration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncPollSuccess increments the success counter for a feed kind.
func (c *ClientMetrics) IncPollSuccess(kind string) {
	if c == nil || c.pollSuccess == nil {
		return
	}
	c.pollSuccess.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPollFailure increments the failure counter for a feed kind.
func (c *ClientMetrics) IncPollFailure(kind string) {
	if c == nil || c.pollFailure == nil {
		return
	}
	c.pollFailure.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncSubmission records one submission attempt with its aggregate outcome
// (success, partial, failure).
func (c *ClientMetrics) IncSubmission(outcome string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncAvailabilityCheck records one availability lookup result
// (available, unavailable, error).
func (c *ClientMetrics) IncAvailabilityCheck(result string) {
	if c == nil || c.availability == nil {
		return
	}
	c.availability.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
