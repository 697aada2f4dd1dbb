// Package health implements liveness and readiness probes for the
// control plane process, for Kubernetes and other orchestration
// systems.
//
// # Endpoints
//
// CreateHandlers returns three HandlerFuncs, mounted by callers at:
//
//   - /health: liveness probe - indicates the process is running
//   - /ready: readiness probe - indicates the registry can serve traffic
//   - /version: build information (version, commit, build time, Go version)
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("registry", func(ctx context.Context) error {
//	    if len(registry.Proxies()) == 0 {
//	        return errors.New("no proxies configured")
//	    }
//	    return nil
//	})
//
//	handlers := checker.CreateHandlers(version, commit, buildTime)
//	mux.HandleFunc("/health", handlers.LivenessHandler)
//	mux.HandleFunc("/ready", handlers.ReadinessHandler)
//
// # Liveness vs readiness
//
// Liveness always reports ok as long as the process is scheduling
// goroutines; it never runs a registered check, so it stays fast
// enough for a restart-loop probe. Readiness runs every registered
// check concurrently and reports "degraded" if any of them fails -
// typical checks here are "does this backend have at least one
// healthy server" and "is the stats store reachable".
package health
