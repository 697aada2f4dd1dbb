package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks per-server health and load.
//
// Metrics:
//   - proxycore_proxy_server_up: 1 if the server is admitting traffic
//   - proxycore_proxy_server_checks_total: health check count by result
//   - proxycore_proxy_server_check_duration_seconds: health check latency
//   - proxycore_proxy_server_active_connections: current connections
type BackendMetrics struct {
	up            *prometheus.GaugeVec
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	activeConns   *prometheus.GaugeVec
}

// NewBackendMetrics creates and registers backend/server metrics.
func NewBackendMetrics(cfg *Config, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "server_up",
				Help:      "Whether a server is currently admitting traffic (1) or down (0)",
			},
			[]string{"backend", "server"},
		),
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "server_checks_total",
				Help:      "Total number of health checks performed, by result",
			},
			[]string{"backend", "server", "result"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "server_check_duration_seconds",
				Help:      "Health check round trip time in seconds",
				Buckets:   cfg.CheckDurationBuckets,
			},
			[]string{"backend", "server"},
		),
		activeConns: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "server_active_connections",
				Help:      "Current number of active connections to a server",
			},
			[]string{"backend", "server"},
		),
	}

	registry.MustRegister(
		bm.up,
		bm.checksTotal,
		bm.checkDuration,
		bm.activeConns,
	)

	return bm
}

// RecordCheck records one completed health check.
func (bm *BackendMetrics) RecordCheck(backendName, serverName string, up bool, duration time.Duration) {
	result := "fail"
	if up {
		result = "pass"
	}
	bm.checksTotal.WithLabelValues(backendName, serverName, result).Inc()
	bm.checkDuration.WithLabelValues(backendName, serverName).Observe(duration.Seconds())
}

// SetUp sets the server_up gauge.
func (bm *BackendMetrics) SetUp(backendName, serverName string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	bm.up.WithLabelValues(backendName, serverName).Set(v)
}

// SetActiveConns sets the current active connection gauge for a server.
func (bm *BackendMetrics) SetActiveConns(backendName, serverName string, conns int) {
	bm.activeConns.WithLabelValues(backendName, serverName).Set(float64(conns))
}
