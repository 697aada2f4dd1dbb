package metrics

import "github.com/prometheus/client_golang/prometheus"

// RateLimitMetrics tracks session admission-control decisions.
//
// Metrics:
//   - proxycore_proxy_rate_limit_decisions_total: admitted vs denied sessions
type RateLimitMetrics struct {
	decisionsTotal *prometheus.CounterVec
}

// NewRateLimitMetrics creates and registers rate-limit metrics.
func NewRateLimitMetrics(cfg *Config, registry *prometheus.Registry) *RateLimitMetrics {
	rl := &RateLimitMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limit_decisions_total",
				Help:      "Total number of session admission decisions, by proxy and verdict",
			},
			[]string{"proxy", "verdict"},
		),
	}

	registry.MustRegister(rl.decisionsTotal)

	return rl
}

// RecordDecision records one admission-control verdict.
func (rl *RateLimitMetrics) RecordDecision(proxyName string, admitted bool) {
	verdict := "denied"
	if admitted {
		verdict = "admitted"
	}
	rl.decisionsTotal.WithLabelValues(proxyName, verdict).Inc()
}
