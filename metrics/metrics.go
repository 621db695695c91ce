// Package metrics exposes Prometheus metrics for rate limiting decisions.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	metricsLabelLimiter = "limiter"
	metricsLabelOutcome = "outcome"
)

const (
	outcomeAllowed  = "allowed"
	outcomeRejected = "rejected"
)

// RateLimitMetrics counts admission decisions, labeled by limiter key and
// outcome.
type RateLimitMetrics struct {
	Requests *prometheus.CounterVec
}

// NewRateLimitMetrics creates a new, unregistered metrics collector.
func NewRateLimitMetrics() *RateLimitMetrics {
	return &RateLimitMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callratelimit_requests_total",
			Help: "Number of calls checked against a rate limiter, by outcome.",
		}, []string{metricsLabelLimiter, metricsLabelOutcome}),
	}
}

// MustRegister registers the collector in the default Prometheus registry
// and panics if any error occurs.
func (m *RateLimitMetrics) MustRegister() {
	prometheus.MustRegister(m.Requests)
}

// Unregister removes the collector from the default Prometheus registry.
func (m *RateLimitMetrics) Unregister() {
	prometheus.Unregister(m.Requests)
}

// RecordRequest records one admission decision for the named limiter.
func (m *RateLimitMetrics) RecordRequest(limiterKey string, allowed bool) {
	outcome := outcomeRejected
	if allowed {
		outcome = outcomeAllowed
	}
	m.Requests.WithLabelValues(limiterKey, outcome).Inc()
}
