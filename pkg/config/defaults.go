package config

import "time"

// ApplyDefaults fills in every zero-valued field with its documented
// default.
func ApplyDefaults(cfg *Config) {
	if cfg.Global.TickInterval <= 0 {
		cfg.Global.TickInterval = 100 * time.Millisecond
	}

	for i := range cfg.Proxies {
		applyProxyDefaults(&cfg.Proxies[i])
	}

	if cfg.Admin.ListenAddress == "" {
		cfg.Admin.ListenAddress = "127.0.0.1:9000"
	}
	if cfg.Admin.ReadTimeout <= 0 {
		cfg.Admin.ReadTimeout = 30 * time.Second
	}
	if cfg.Admin.WriteTimeout <= 0 {
		cfg.Admin.WriteTimeout = 30 * time.Second
	}
	if cfg.Admin.IdleTimeout <= 0 {
		cfg.Admin.IdleTimeout = 120 * time.Second
	}
	if cfg.Admin.ShutdownTimeout <= 0 {
		cfg.Admin.ShutdownTimeout = 30 * time.Second
	}
	if !cfg.Admin.MetricsEnabled {
		cfg.Admin.MetricsEnabled = true
	}
	applyCORSDefaults(&cfg.Admin.CORS)

	if cfg.Store.Path == "" {
		cfg.Store.Path = "./proxycore.db"
	}
	if cfg.Store.SnapshotInterval <= 0 {
		cfg.Store.SnapshotInterval = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = "ratio"
	}
	if cfg.Tracing.SampleRatio <= 0 {
		cfg.Tracing.SampleRatio = 0.1
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "proxycore"
	}
	if cfg.Tracing.OTLP.Timeout <= 0 {
		cfg.Tracing.OTLP.Timeout = 10 * time.Second
	}
}

func applyProxyDefaults(p *ProxyConfig) {
	if p.Mode == "" {
		p.Mode = "http"
	}
	if p.MaxConn <= 0 {
		p.MaxConn = 2000
	}
	if p.Algorithm == "" {
		p.Algorithm = "roundrobin"
	}
	applyDefaultServerDefaults(&p.DefaultServer)
}

func applyDefaultServerDefaults(d *DefaultServerConfig) {
	if d.Inter <= 0 {
		d.Inter = 2 * time.Second
	}
	if d.FastInter <= 0 {
		d.FastInter = d.Inter
	}
	if d.DownInter <= 0 {
		d.DownInter = d.Inter
	}
	if d.Rise <= 0 {
		d.Rise = 2
	}
	if d.Fall <= 0 {
		d.Fall = 3
	}
	if d.Weight <= 0 {
		d.Weight = 1
	}
}

func applyCORSDefaults(c *CORSConfig) {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if len(c.ExposedHeaders) == 0 {
		c.ExposedHeaders = []string{"X-Request-ID"}
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}
}
