// Package metrics exposes proxy, backend, and rate-limiting counters as
// Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the orchestrator for every Prometheus metric exposed by
// the process. One Collector wraps one registry; callers record through
// its methods rather than touching the underlying prometheus types.
type Collector struct {
	registry *prometheus.Registry

	proxy   *ProxyMetrics
	backend *BackendMetrics
	limiter *RateLimitMetrics
}

// Config controls namespace/subsystem naming and histogram bucket
// selection for the collector's metrics.
type Config struct {
	Namespace string
	Subsystem string

	// SessionDurationBuckets buckets session lifetime, in seconds.
	SessionDurationBuckets []float64

	// CheckDurationBuckets buckets health-check round trip time, in
	// seconds.
	CheckDurationBuckets []float64
}

// DefaultConfig returns sane namespace/bucket defaults.
func DefaultConfig() *Config {
	return &Config{
		Namespace:              "proxycore",
		Subsystem:              "proxy",
		SessionDurationBuckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		CheckDurationBuckets:   prometheus.DefBuckets,
	}
}

// NewCollector creates a collector registered against registry. If
// registry is nil, a fresh prometheus.Registry is created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "proxycore"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "proxy"
	}
	if len(cfg.SessionDurationBuckets) == 0 {
		cfg.SessionDurationBuckets = DefaultConfig().SessionDurationBuckets
	}
	if len(cfg.CheckDurationBuckets) == 0 {
		cfg.CheckDurationBuckets = prometheus.DefBuckets
	}

	return &Collector{
		registry: registry,
		proxy:    NewProxyMetrics(cfg, registry),
		backend:  NewBackendMetrics(cfg, registry),
		limiter:  NewRateLimitMetrics(cfg, registry),
	}
}

// RecordSession records a completed session's outcome and lifetime.
func (c *Collector) RecordSession(proxyName, status string, duration time.Duration) {
	c.proxy.RecordSession(proxyName, status, duration)
}

// SetFrontendConnections reports the current frontend connection count
// for a proxy.
func (c *Collector) SetFrontendConnections(proxyName string, conns int) {
	c.proxy.SetFrontendConnections(proxyName, conns)
}

// SetBackendConnections reports the current backend connection count for
// a proxy.
func (c *Collector) SetBackendConnections(proxyName string, conns int) {
	c.proxy.SetBackendConnections(proxyName, conns)
}

// RecordServerCheck records the outcome and duration of one health check.
func (c *Collector) RecordServerCheck(backendName, serverName string, up bool, duration time.Duration) {
	c.backend.RecordCheck(backendName, serverName, up, duration)
}

// SetServerUp reports whether a server is currently admitting traffic.
func (c *Collector) SetServerUp(backendName, serverName string, up bool) {
	c.backend.SetUp(backendName, serverName, up)
}

// SetServerActiveConns reports the current connection count on a server.
func (c *Collector) SetServerActiveConns(backendName, serverName string, conns int) {
	c.backend.SetActiveConns(backendName, serverName, conns)
}

// RecordRateLimitDecision records an admission-control verdict for a
// proxy's session rate limiter.
func (c *Collector) RecordRateLimitDecision(proxyName string, admitted bool) {
	c.limiter.RecordDecision(proxyName, admitted)
}

// Registry returns the underlying Prometheus registry, e.g. to hand to a
// custom promhttp handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving this collector's metrics in
// Prometheus exposition format, suitable for mounting at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
