// Package config is the root configuration structure for the proxy
// control plane: the process-wide proxy list, backend pools, and their
// switching rules, loaded from YAML with environment-variable overrides
// (spec §6's "Config registry" collaborator and the ambient config
// layer proxycore's keyword parsers plug into).
package config

import "time"

// Config is the root configuration document.
type Config struct {
	// Global contains process-wide limits applied before any per-proxy
	// admission check.
	Global GlobalConfig `yaml:"global"`

	// Proxies lists every frontend and backend proxy to construct at
	// startup, in declaration order.
	Proxies []ProxyConfig `yaml:"proxies"`

	// SwitchingRules lists domain -> backend routing rules installed
	// after every named proxy exists.
	SwitchingRules []SwitchingRuleConfig `yaml:"switching_rules"`

	// Admin contains configuration for the runtime admin/metrics HTTP
	// surface.
	Admin AdminConfig `yaml:"admin"`

	// Store contains configuration for optional stats persistence.
	Store StoreConfig `yaml:"store"`

	// Logging contains structured-logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing contains distributed-tracing configuration for the admin
	// API and the registry bootstrap pass.
	Tracing TracingConfig `yaml:"tracing"`
}

// GlobalConfig mirrors haproxy's "global" section: process-wide ceilings
// that apply before any per-proxy admission check.
type GlobalConfig struct {
	// MaxConn is the process-wide concurrent-connection ceiling.
	// 0 means unlimited.
	// Default: 0
	MaxConn int `yaml:"maxconn"`

	// TickInterval is how often the Lifecycle Controller's
	// maintain_proxies sweep runs.
	// Default: 100ms
	TickInterval time.Duration `yaml:"tick_interval"`
}

// ProxyConfig declares one frontend or backend proxy.
type ProxyConfig struct {
	// Name is the proxy's identifier, unique within its capability set.
	Name string `yaml:"name"`

	// Kind is one of "frontend", "backend", "listen" (FE+BE).
	Kind string `yaml:"kind"`

	// Mode is one of "tcp", "http", "health".
	// Default: "http"
	Mode string `yaml:"mode"`

	// Listen is the list of "host:port" addresses a frontend binds.
	// Ignored for backend-only proxies.
	Listen []string `yaml:"listen"`

	// MaxConn is the frontend concurrent-session ceiling.
	// Default: 2000
	MaxConn int `yaml:"maxconn"`

	// RateLimitSessions is fe_sps_lim: sessions/second, 0 = unlimited.
	RateLimitSessions int `yaml:"rate_limit_sessions"`

	// Timeouts holds the keyword-parser-backed timeout fields, each
	// accepting a haproxy-style duration string (e.g. "5s", "2500ms").
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Algorithm selects the load-balancing strategy: "roundrobin",
	// "leastconn", or "sticky".
	// Default: "roundrobin"
	Algorithm string `yaml:"algorithm"`

	// DefaultServer holds the defsrv template applied to every server
	// declared under this proxy.
	DefaultServer DefaultServerConfig `yaml:"default_server"`

	// Servers lists the backend targets to add at startup.
	Servers []ServerConfig `yaml:"servers"`
}

// TimeoutsConfig holds string-form durations for each spec §4.3 keyword.
type TimeoutsConfig struct {
	Client        string `yaml:"client"`
	Server        string `yaml:"server"`
	Connect       string `yaml:"connect"`
	Check         string `yaml:"check"`
	Queue         string `yaml:"queue"`
	Tarpit        string `yaml:"tarpit"`
	HTTPKeepAlive string `yaml:"http_keep_alive"`
	HTTPRequest   string `yaml:"http_request"`
}

// DefaultServerConfig mirrors backend.Template in string/duration form.
type DefaultServerConfig struct {
	Inter     time.Duration `yaml:"inter"`
	FastInter time.Duration `yaml:"fast_inter"`
	DownInter time.Duration `yaml:"down_inter"`
	Rise      int           `yaml:"rise"`
	Fall      int           `yaml:"fall"`
	Weight    int           `yaml:"weight"`
	MaxQueue  int           `yaml:"max_queue"`
	MinConn   int           `yaml:"min_conn"`
	MaxConn   int           `yaml:"max_conn"`
}

// ServerConfig declares one backend target.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Cookie  string `yaml:"cookie"`
	Weight  int    `yaml:"weight"`
}

// SwitchingRuleConfig declares one frontend -> backend domain route.
type SwitchingRuleConfig struct {
	Frontend string `yaml:"frontend"`
	Backend  string `yaml:"backend"`
	Domain   string `yaml:"domain"`
}

// AdminConfig configures the runtime admin HTTP API: inspection and
// mutation of proxies/backends/servers, plus /health, /ready, and
// /metrics.
type AdminConfig struct {
	// ListenAddress is the admin HTTP server's bind address.
	// Default: "127.0.0.1:9000"
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MetricsEnabled controls whether /metrics is mounted.
	// Default: true
	MetricsEnabled bool `yaml:"metrics_enabled"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin access to the admin API, which is
// just as browser-addressable as any other HTTP control surface.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	MaxAge           int      `yaml:"max_age"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// StoreConfig configures optional sqlite-backed stats persistence.
type StoreConfig struct {
	// Enabled controls whether server-state snapshots are persisted.
	Enabled bool `yaml:"enabled"`

	// Path is the sqlite database file path.
	// Default: "./proxycore.db"
	Path string `yaml:"path"`

	// SnapshotInterval controls how often state is flushed to disk.
	// Default: 10s
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// LoggingConfig configures the process-wide slog handler.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is one of "text", "json".
	// Default: "text"
	Format string `yaml:"format"`
}

// TracingConfig configures distributed tracing for the admin API and
// the registry bootstrap pass.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is one of "always", "never", "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0-1.0), used
	// only when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName identifies this process in exported traces.
	// Default: "proxycore"
	ServiceName string `yaml:"service_name"`

	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig configures the OTLP gRPC exporter.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection. It defaults to
	// false (TLS required); a collector reachable only over plaintext,
	// such as a local sidecar, must set this explicitly.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
