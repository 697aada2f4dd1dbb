package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics tracks per-proxy session throughput and connection gauges.
//
// Metrics:
//   - proxycore_proxy_sessions_total: session count by proxy and status
//   - proxycore_proxy_session_duration_seconds: session lifetime histogram
//   - proxycore_proxy_frontend_connections: current frontend connections
//   - proxycore_proxy_backend_connections: current backend connections
type ProxyMetrics struct {
	sessionsTotal    *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	feConnections    *prometheus.GaugeVec
	beConnectionsVec *prometheus.GaugeVec
}

// NewProxyMetrics creates and registers proxy-level metrics.
func NewProxyMetrics(cfg *Config, registry *prometheus.Registry) *ProxyMetrics {
	pm := &ProxyMetrics{
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_total",
				Help:      "Total number of sessions processed, by proxy and outcome",
			},
			[]string{"proxy", "status"},
		),
		sessionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "session_duration_seconds",
				Help:      "Session lifetime in seconds",
				Buckets:   cfg.SessionDurationBuckets,
			},
			[]string{"proxy"},
		),
		feConnections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "frontend_connections",
				Help:      "Current number of accepted frontend connections",
			},
			[]string{"proxy"},
		),
		beConnectionsVec: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_connections",
				Help:      "Current number of open backend connections",
			},
			[]string{"proxy"},
		),
	}

	registry.MustRegister(
		pm.sessionsTotal,
		pm.sessionDuration,
		pm.feConnections,
		pm.beConnectionsVec,
	)

	return pm
}

// RecordSession records one completed session.
func (pm *ProxyMetrics) RecordSession(proxyName, status string, duration time.Duration) {
	pm.sessionsTotal.WithLabelValues(proxyName, status).Inc()
	pm.sessionDuration.WithLabelValues(proxyName).Observe(duration.Seconds())
}

// SetFrontendConnections sets the current frontend connection gauge.
func (pm *ProxyMetrics) SetFrontendConnections(proxyName string, conns int) {
	pm.feConnections.WithLabelValues(proxyName).Set(float64(conns))
}

// SetBackendConnections sets the current backend connection gauge.
func (pm *ProxyMetrics) SetBackendConnections(proxyName string, conns int) {
	pm.beConnectionsVec.WithLabelValues(proxyName).Set(float64(conns))
}
