// Package bootstrap translates a loaded config.Config into a running
// proxycore.Registry, applying each proxy's keywords, servers, and
// switching rules in declaration order the same way haproxy's
// cfg_parse_listen/cfg_parse_global pass does.
package bootstrap

import (
	"context"
	"fmt"

	"proxycore/pkg/backend"
	"proxycore/pkg/config"
	"proxycore/pkg/proxycore"
	"proxycore/pkg/scheduler"
	"proxycore/pkg/telemetry/tracing"
)

// BuildRegistryTraced wraps BuildRegistry in a span, so a slow startup
// (many proxies, many servers) shows up in the same trace backend as
// the admin API's request spans. tracer may be nil.
func BuildRegistryTraced(ctx context.Context, tracer *tracing.Tracer, cfg *config.Config, sched *scheduler.Scheduler) (*proxycore.Registry, error) {
	if tracer == nil {
		return BuildRegistry(cfg, sched)
	}
	_, span := tracer.Start(ctx, "bootstrap.BuildRegistry")
	defer span.End()

	registry, err := BuildRegistry(cfg, sched)
	tracing.SetError(span, err)
	return registry, err
}

// BuildRegistry constructs a Registry and populates it with every proxy,
// server, and switching rule declared in cfg. sched wires each server's
// health-check Task.
func BuildRegistry(cfg *config.Config, sched *scheduler.Scheduler) (*proxycore.Registry, error) {
	registry := proxycore.NewRegistry(sched, cfg.Global.MaxConn)

	for _, pc := range cfg.Proxies {
		p, err := addProxy(registry, pc)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: proxy %q: %w", pc.Name, err)
		}

		if err := applyProxyConfig(p, pc); err != nil {
			return nil, fmt.Errorf("bootstrap: proxy %q: %w", pc.Name, err)
		}

		for _, sc := range pc.Servers {
			if _, err := registry.AddServer(pc.Name, sc.Name, sc.Address, sc.Cookie); err != nil {
				return nil, fmt.Errorf("bootstrap: proxy %q server %q: %w", pc.Name, sc.Name, err)
			}
		}
	}

	for _, rule := range cfg.SwitchingRules {
		if err := registry.AddSwitchEntry(rule.Frontend, rule.Backend, rule.Domain); err != nil {
			return nil, fmt.Errorf("bootstrap: switching rule %s->%s: %w", rule.Frontend, rule.Backend, err)
		}
	}

	return registry, nil
}

func addProxy(registry *proxycore.Registry, pc config.ProxyConfig) (*proxycore.Proxy, error) {
	switch pc.Kind {
	case "frontend":
		return registry.AddFrontend(pc.Name, pc.Listen)
	case "backend":
		return registry.AddBackend(pc.Name)
	case "listen":
		return registry.AddListen(pc.Name, pc.Listen)
	default:
		return nil, fmt.Errorf("unrecognized kind %q", pc.Kind)
	}
}

// applyProxyConfig installs mode, maxconn, algorithm, rate limit,
// timeouts, and the default-server template onto an already-created
// proxy, the same sequence the config keyword bridge applies them in.
func applyProxyConfig(p *proxycore.Proxy, pc config.ProxyConfig) error {
	if pc.Mode != "" {
		mode, err := parseMode(pc.Mode)
		if err != nil {
			return err
		}
		p.SetMode(mode)
	}

	if pc.MaxConn > 0 {
		p.SetMaxConn(pc.MaxConn)
	}

	if pc.Algorithm != "" {
		p.SetAlgorithm(proxycore.LBAlgoKind(pc.Algorithm))
	}

	if pc.RateLimitSessions > 0 {
		args := []string{"sessions", fmt.Sprintf("%d", pc.RateLimitSessions)}
		if _, err := proxycore.ParseRateLimitKeyword(p, args); err != nil {
			return err
		}
	}

	for keyword, value := range timeoutKeywords(pc.Timeouts) {
		if value == "" {
			continue
		}
		if _, err := proxycore.ParseTimeoutKeyword(p, keyword, value); err != nil {
			return fmt.Errorf("timeout %s: %w", keyword, err)
		}
	}

	p.SetDefaultServerTemplate(defaultServerTemplate(pc.DefaultServer))
	return nil
}

func parseMode(mode string) (proxycore.Mode, error) {
	switch mode {
	case "tcp":
		return proxycore.ModeTCP, nil
	case "http":
		return proxycore.ModeHTTP, nil
	case "health":
		return proxycore.ModeHealth, nil
	default:
		return 0, fmt.Errorf("unrecognized mode %q", mode)
	}
}

func timeoutKeywords(t config.TimeoutsConfig) map[string]string {
	return map[string]string{
		"client":          t.Client,
		"server":          t.Server,
		"connect":         t.Connect,
		"check":           t.Check,
		"queue":           t.Queue,
		"tarpit":          t.Tarpit,
		"http-keep-alive": t.HTTPKeepAlive,
		"http-request":    t.HTTPRequest,
	}
}

func defaultServerTemplate(dc config.DefaultServerConfig) backend.Template {
	tmpl := backend.DefaultTemplate()
	if dc.Inter > 0 {
		tmpl.Inter = dc.Inter
	}
	if dc.FastInter > 0 {
		tmpl.FastInter = dc.FastInter
	} else if dc.Inter > 0 {
		tmpl.FastInter = dc.Inter
	}
	if dc.DownInter > 0 {
		tmpl.DownInter = dc.DownInter
	} else if dc.Inter > 0 {
		tmpl.DownInter = dc.Inter
	}
	if dc.Rise > 0 {
		tmpl.Rise = dc.Rise
	}
	if dc.Fall > 0 {
		tmpl.Fall = dc.Fall
	}
	if dc.Weight > 0 {
		tmpl.Weight = dc.Weight
	}
	tmpl.MaxQueue = dc.MaxQueue
	tmpl.MinConn = dc.MinConn
	tmpl.MaxConn = dc.MaxConn
	return tmpl
}
