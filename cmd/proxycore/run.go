package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"proxycore/pkg/adminapi"
	"proxycore/pkg/bootstrap"
	"proxycore/pkg/cli"
	"proxycore/pkg/clock"
	"proxycore/pkg/config"
	"proxycore/pkg/metrics"
	"proxycore/pkg/proxycore"
	"proxycore/pkg/reload"
	"proxycore/pkg/scheduler"
	"proxycore/pkg/store"
	"proxycore/pkg/telemetry/health"
	"proxycore/pkg/telemetry/tracing"
)

var runFlags struct {
	adminAddress string
	logLevel     string
	dryRun       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the proxycore control plane",
	Long: `Start the proxycore control plane with the specified configuration.

The process builds the proxy registry from the config file, binds every
frontend listener, starts each backend's health checks, and serves the
admin API (inspection, mutation, /health, /ready, /metrics).

Examples:
  # Start with default config
  proxycore run

  # Start with custom config
  proxycore run --config /etc/proxycore/config.yaml

  # Override the admin API's listen address
  proxycore run --admin-listen 0.0.0.0:9000

  # Validate config without starting
  proxycore run --dry-run`,
	RunE: runControlPlane,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.adminAddress, "admin-listen", "", "override the admin API listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runControlPlane(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.adminAddress != "" {
		cfg.Admin.ListenAddress = runFlags.adminAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	configureLogging(cfg.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	sched := scheduler.New()
	sched.Start()
	defer sched.Stop()

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to init tracing: %w", err))
	}
	defer tracer.Shutdown(context.Background())

	registry, err := bootstrap.BuildRegistryTraced(context.Background(), tracer, cfg, sched)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if flags := registry.StartProxies(verbose); flags != 0 {
		slog.Warn("one or more listeners failed to bind", "flags", flags)
	}
	fmt.Printf("✓ Registry built (%d proxies)\n", len(registry.Proxies()))

	var statsStore *store.Store
	if cfg.Store.Enabled {
		statsStore, err = store.Open(store.Config{
			Path:             cfg.Store.Path,
			SnapshotInterval: cfg.Store.SnapshotInterval,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open store: %w", err))
		}
		defer statsStore.Close()
		fmt.Printf("✓ Stats store opened (%s)\n", cfg.Store.Path)
	}

	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
	checker := health.New(5 * time.Second)
	registerHealthChecks(checker, registry, statsStore)

	ctx, cancel := context.WithCancel(context.Background())
	stopTicker := startLifecycleTicker(ctx, registry, cfg.Global.TickInterval)
	defer stopTicker()
	defer cancel()

	watcher, err := reload.NewWatcher(reload.DefaultConfig(cfgFile), slog.Default())
	if err != nil {
		slog.Warn("config reload watcher unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Watch(ctx, func() error {
				if err := config.ReloadConfig(cfgFile); err != nil {
					return err
				}
				configureLogging(config.GetConfig().Logging)
				slog.Info("config reloaded; logging settings re-applied (topology changes require a restart)")
				return nil
			}); err != nil {
				slog.Warn("config reload watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	build := adminapi.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate}
	adminServer := adminapi.NewServer(cfg.Admin, registry, collector, checker, tracer, build)

	errChan := make(chan error, 1)
	go func() {
		if err := adminServer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Admin API listening on %s\n", cfg.Admin.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Admin.ListenAddress)
	if cfg.Admin.MetricsEnabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Admin.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)

		registry.SoftStop(clock.Tick(cfg.Admin.ShutdownTimeout.Milliseconds()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
		defer shutdownCancel()

		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("admin api shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Control plane stopped")
		return nil
	}
}

func configureLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func registerHealthChecks(checker *health.Checker, registry *proxycore.Registry, statsStore *store.Store) {
	checker.RegisterCheck("registry", func(ctx context.Context) error {
		if len(registry.Proxies()) == 0 {
			return fmt.Errorf("no proxies configured")
		}
		return nil
	})

	for _, p := range registry.Proxies() {
		if !p.Cap().Has(proxycore.CapBE) {
			continue
		}
		name := p.ID()
		proxy := p
		checker.RegisterCheck("backend:"+name, func(ctx context.Context) error {
			for _, s := range proxy.Servers() {
				if s.IsUp() {
					return nil
				}
			}
			if len(proxy.Servers()) == 0 {
				return nil
			}
			return fmt.Errorf("backend %q has no healthy servers", name)
		})
	}

	if statsStore != nil {
		checker.RegisterCheck("store", func(ctx context.Context) error {
			_, err := statsStore.LoadSnapshots(ctx, "__healthcheck__")
			return err
		})
	}
}

// startLifecycleTicker runs the registry's admission sweep
// (MaintainProxies) on a fixed-interval ticker, stopping when ctx is
// cancelled.
func startLifecycleTicker(ctx context.Context, registry *proxycore.Registry, interval time.Duration) func() {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				registry.MaintainProxies()
			}
		}
	}()

	return func() {
		<-done
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("proxycore v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	fmt.Printf("  proxies: %d, switching rules: %d\n", len(cfg.Proxies), len(cfg.SwitchingRules))
}
