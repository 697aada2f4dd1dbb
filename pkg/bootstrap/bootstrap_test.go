package bootstrap

import (
	"testing"

	"proxycore/pkg/config"
	"proxycore/pkg/proxycore"
	"proxycore/pkg/scheduler"
)

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	sched := scheduler.New()
	sched.Start()
	t.Cleanup(sched.Stop)
	return sched
}

func TestBuildRegistryWiresProxiesServersAndSwitchingRules(t *testing.T) {
	cfg := &config.Config{
		Global: config.GlobalConfig{MaxConn: 100},
		Proxies: []config.ProxyConfig{
			{
				Name:   "fe",
				Kind:   "frontend",
				Mode:   "http",
				Listen: []string{"127.0.0.1:0"},
			},
			{
				Name:      "web_pool",
				Kind:      "backend",
				Mode:      "http",
				Algorithm: "leastconn",
				MaxConn:   500,
				Timeouts:  config.TimeoutsConfig{Connect: "1s", Server: "5s"},
				Servers: []config.ServerConfig{
					{Name: "s1", Address: "10.0.0.1:80"},
					{Name: "s2", Address: "10.0.0.2:80"},
				},
			},
		},
		SwitchingRules: []config.SwitchingRuleConfig{
			{Frontend: "fe", Backend: "web_pool", Domain: "example.com"},
		},
	}

	registry, err := BuildRegistry(cfg, newTestScheduler(t))
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}

	be, err := registry.FindProxy("web_pool", proxycore.CapBE)
	if err != nil {
		t.Fatalf("FindProxy: %v", err)
	}
	if be.MaxConn() != 500 {
		t.Errorf("expected maxconn 500, got %d", be.MaxConn())
	}
	if len(be.Servers()) != 2 {
		t.Errorf("expected 2 servers, got %d", len(be.Servers()))
	}
	if be.Timeouts().Connect != 1000 {
		t.Errorf("expected connect timeout 1000ms, got %d", be.Timeouts().Connect)
	}

	fe, err := registry.FindProxy("fe", proxycore.CapFE)
	if err != nil {
		t.Fatalf("FindProxy fe: %v", err)
	}
	if len(fe.Listeners()) != 1 {
		t.Errorf("expected 1 listener, got %d", len(fe.Listeners()))
	}
}

func TestBuildRegistryListenKindAcceptsServersDirectly(t *testing.T) {
	cfg := &config.Config{
		Proxies: []config.ProxyConfig{
			{
				Name:   "combo",
				Kind:   "listen",
				Mode:   "tcp",
				Listen: []string{"127.0.0.1:0"},
				Servers: []config.ServerConfig{
					{Name: "s1", Address: "10.0.0.1:80"},
				},
			},
		},
	}

	registry, err := BuildRegistry(cfg, newTestScheduler(t))
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}

	p, err := registry.FindProxy("combo", proxycore.CapListen)
	if err != nil {
		t.Fatalf("FindProxy: %v", err)
	}
	if !p.Cap().Has(proxycore.CapFE) || !p.Cap().Has(proxycore.CapBE) {
		t.Errorf("expected combined FE+BE capability, got %v", p.Cap())
	}
	if len(p.Servers()) != 1 {
		t.Errorf("expected 1 server, got %d", len(p.Servers()))
	}
}

func TestBuildRegistryRejectsUnknownKind(t *testing.T) {
	cfg := &config.Config{
		Proxies: []config.ProxyConfig{
			{Name: "bad", Kind: "bogus"},
		},
	}

	if _, err := BuildRegistry(cfg, newTestScheduler(t)); err == nil {
		t.Fatal("expected error for unrecognized kind")
	}
}

func TestBuildRegistryRejectsUnknownSwitchingRuleTarget(t *testing.T) {
	cfg := &config.Config{
		Proxies: []config.ProxyConfig{
			{Name: "fe", Kind: "frontend", Listen: []string{"127.0.0.1:0"}},
		},
		SwitchingRules: []config.SwitchingRuleConfig{
			{Frontend: "fe", Backend: "missing", Domain: "example.com"},
		},
	}

	if _, err := BuildRegistry(cfg, newTestScheduler(t)); err == nil {
		t.Fatal("expected error for unknown switching rule backend")
	}
}
