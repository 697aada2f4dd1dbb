package config

import (
	"fmt"
	"strings"
)

// Validate checks a Config for internal consistency after defaults have
// been applied, returning a joined error that collects every violation
// found instead of failing on the first.
func Validate(cfg *Config) error {
	var problems []string

	names := make(map[string]bool)
	for i, p := range cfg.Proxies {
		if p.Name == "" {
			problems = append(problems, fmt.Sprintf("proxies[%d]: name is required", i))
			continue
		}
		names[p.Name] = true

		switch p.Kind {
		case "frontend", "backend", "listen":
		default:
			problems = append(problems, fmt.Sprintf("proxies[%d] %q: kind must be frontend, backend, or listen", i, p.Name))
		}

		switch p.Mode {
		case "tcp", "http", "health":
		default:
			problems = append(problems, fmt.Sprintf("proxies[%d] %q: mode must be tcp, http, or health", i, p.Name))
		}

		if (p.Kind == "frontend" || p.Kind == "listen") && len(p.Listen) == 0 {
			problems = append(problems, fmt.Sprintf("proxies[%d] %q: frontend/listen proxies require at least one listen address", i, p.Name))
		}

		switch p.Algorithm {
		case "roundrobin", "leastconn", "sticky":
		default:
			problems = append(problems, fmt.Sprintf("proxies[%d] %q: unrecognized algorithm %q", i, p.Name, p.Algorithm))
		}

		serverNames := make(map[string]bool)
		for j, s := range p.Servers {
			if s.Name == "" {
				problems = append(problems, fmt.Sprintf("proxies[%d] %q servers[%d]: name is required", i, p.Name, j))
				continue
			}
			if serverNames[s.Name] {
				problems = append(problems, fmt.Sprintf("proxies[%d] %q: duplicate server name %q", i, p.Name, s.Name))
			}
			serverNames[s.Name] = true
			if s.Address == "" {
				problems = append(problems, fmt.Sprintf("proxies[%d] %q server %q: address is required", i, p.Name, s.Name))
			}
		}
	}

	for i, rule := range cfg.SwitchingRules {
		if rule.Domain == "" {
			problems = append(problems, fmt.Sprintf("switching_rules[%d]: domain is required", i))
		}
		if rule.Frontend == "" || !names[rule.Frontend] {
			problems = append(problems, fmt.Sprintf("switching_rules[%d]: unknown frontend %q", i, rule.Frontend))
		}
		if rule.Backend == "" || !names[rule.Backend] {
			problems = append(problems, fmt.Sprintf("switching_rules[%d]: unknown backend %q", i, rule.Backend))
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level))
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			problems = append(problems, fmt.Sprintf("tracing.sampler must be always, never, or ratio, got %q", cfg.Tracing.Sampler))
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			problems = append(problems, fmt.Sprintf("tracing.sample_ratio must be between 0.0 and 1.0, got %v", cfg.Tracing.SampleRatio))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
}
