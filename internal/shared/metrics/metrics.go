package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upscaleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upscale_requests_total",
			Help: "Upscale requests by outcome",
		},
		[]string{"outcome"},
	)

	upscaleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upscale_duration_seconds",
			Help:    "Wall time from image received to terminal state",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"tier"},
	)

	pollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upscale_poll_attempts",
			Help:    "Status checks performed per job",
			Buckets: []float64{1, 2, 3, 5, 8, 12, 16, 20},
		},
	)

	membershipChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_checks_total",
			Help: "Membership gate checks by result",
		},
		[]string{"result"},
	)

	usageEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_events_total",
			Help: "Usage events by kind and delivery status",
		},
		[]string{"kind", "status"},
	)

	usageJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_queue_messages_total",
			Help: "Usage queue messages handled by the worker, by result",
		},
		[]string{"result"},
	)
)

// IncUpscale counts a finished upscale request (done, failed, timeout, rejected).
func IncUpscale(outcome string) {
	upscaleTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpscaleDuration records end-to-end duration for a tier.
func ObserveUpscaleDuration(tier string, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	upscaleDuration.WithLabelValues(tier).Observe(seconds)
}

// ObservePollAttempts records how many status checks a job needed.
func ObservePollAttempts(n int) {
	pollAttempts.Observe(float64(n))
}

// IncMembershipCheck counts a gate decision: member, non_member or error.
func IncMembershipCheck(result string) {
	membershipChecks.WithLabelValues(result).Inc()
}

// IncUsageEvent counts a usage event as recorded, dropped or failed.
func IncUsageEvent(kind, status string) {
	usageEvents.WithLabelValues(kind, status).Inc()
}

// IncUsageQueueMessage counts a worker outcome: received, stored, failed, unrecoverable.
func IncUsageQueueMessage(result string) {
	usageJobs.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
