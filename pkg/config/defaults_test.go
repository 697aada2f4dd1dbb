package config

import (
	"testing"
	"time"
)

func TestApplyDefaultsFillsGlobal(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Global.TickInterval != 100*time.Millisecond {
		t.Errorf("expected default tick interval 100ms, got %v", cfg.Global.TickInterval)
	}
}

func TestApplyDefaultsFillsProxyDefaults(t *testing.T) {
	cfg := &Config{Proxies: []ProxyConfig{{Name: "be"}}}
	ApplyDefaults(cfg)

	p := cfg.Proxies[0]
	if p.Mode != "http" {
		t.Errorf("expected default mode http, got %q", p.Mode)
	}
	if p.MaxConn != 2000 {
		t.Errorf("expected default maxconn 2000, got %d", p.MaxConn)
	}
	if p.Algorithm != "roundrobin" {
		t.Errorf("expected default algorithm roundrobin, got %q", p.Algorithm)
	}
	if p.DefaultServer.Rise != 2 || p.DefaultServer.Fall != 3 {
		t.Errorf("expected default rise/fall 2/3, got %d/%d", p.DefaultServer.Rise, p.DefaultServer.Fall)
	}
	if p.DefaultServer.FastInter != p.DefaultServer.Inter {
		t.Errorf("expected fast_inter to default to inter")
	}
}

func TestApplyDefaultsDoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &Config{Proxies: []ProxyConfig{{Name: "be", MaxConn: 10, Algorithm: "leastconn"}}}
	ApplyDefaults(cfg)

	if cfg.Proxies[0].MaxConn != 10 {
		t.Errorf("expected explicit maxconn preserved, got %d", cfg.Proxies[0].MaxConn)
	}
	if cfg.Proxies[0].Algorithm != "leastconn" {
		t.Errorf("expected explicit algorithm preserved, got %q", cfg.Proxies[0].Algorithm)
	}
}

func TestApplyDefaultsFillsAdminAndStoreAndLogging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Admin.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("expected default admin listen address, got %q", cfg.Admin.ListenAddress)
	}
	if !cfg.Admin.MetricsEnabled {
		t.Error("expected metrics enabled by default")
	}
	if len(cfg.Admin.CORS.AllowedOrigins) == 0 {
		t.Error("expected default CORS allowed origins")
	}
	if cfg.Store.Path != "./proxycore.db" {
		t.Errorf("expected default store path, got %q", cfg.Store.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("expected default logging info/text, got %q/%q", cfg.Logging.Level, cfg.Logging.Format)
	}
}
