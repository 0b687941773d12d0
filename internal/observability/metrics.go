package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ContactSubmissions counts contact submissions by outcome.
	ContactSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_contact_submissions_total",
		Help: "Total contact form submissions by outcome",
	}, []string{"outcome"})

	// LikeToggles counts like toggles by resulting action.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_like_toggles_total",
		Help: "Total like toggles by action",
	}, []string{"action"})

	// RateLimitRejections counts requests denied by the fixed-window limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_rate_limit_rejections_total",
		Help: "Total requests rejected by the rate limiter",
	}, []string{"resource"})

	// UpstreamLatency records latency of calls to third-party services.
	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_upstream_latency_seconds",
		Help:    "Latency of third-party service calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "outcome"})
)

// TrackUpstream returns a function that records upstream latency when called
// (e.g. defer). The outcome is read through the pointer at call time.
func TrackUpstream(service string, err *error) func() {
	start := time.Now()
	return func() {
		outcome := "ok"
		if err != nil && *err != nil {
			outcome = "error"
		}
		UpstreamLatency.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
	}
}
