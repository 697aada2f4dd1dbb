// Package adminapi provides the runtime admin HTTP API: inspection and
// mutation of proxies, backends, servers, and switching rules, plus the
// process's /health, /ready, and /metrics endpoints.
package adminapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"proxycore/pkg/adminapi/middleware"
	"proxycore/pkg/config"
	"proxycore/pkg/metrics"
	"proxycore/pkg/proxycore"
	"proxycore/pkg/telemetry/health"
	"proxycore/pkg/telemetry/tracing"
)

// BuildInfo carries the version/commit/build-time strings a binary's
// main package stamps in via -ldflags, surfaced at /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server is the admin HTTP API server. It never touches the data plane
// directly; every mutation it accepts is forwarded to the Registry, which
// remains the single cooperative-goroutine owner of proxy state.
type Server struct {
	cfg        config.AdminConfig
	registry   *proxycore.Registry
	collector  *metrics.Collector
	checker    *health.Checker
	tracer     *tracing.Tracer
	build      BuildInfo
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new admin API server bound to registry for proxy
// inspection/mutation, collector for /metrics (if enabled), and checker
// for /health and /ready. tracer may be nil, in which case spans are
// not recorded for admin API requests.
func NewServer(cfg config.AdminConfig, registry *proxycore.Registry, collector *metrics.Collector, checker *health.Checker, tracer *tracing.Tracer, build BuildInfo) *Server {
	return &Server{
		cfg:          cfg,
		registry:     registry,
		collector:    collector,
		checker:      checker,
		tracer:       tracer,
		build:        build,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("adminapi: server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting admin api", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("adminapi: server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("admin api context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("admin api shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server. Idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating admin api shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during admin api shutdown", "error", err)
				shutdownErr = fmt.Errorf("adminapi: shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("admin api stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the fully configured HTTP handler, useful for tests
// that want to drive the API with httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	h := &handlers{registry: s.registry}
	mux.HandleFunc("GET /v1/proxies", h.listProxies)
	mux.HandleFunc("GET /v1/proxies/{name}", h.getProxy)
	mux.HandleFunc("POST /v1/backends", h.addBackend)
	mux.HandleFunc("DELETE /v1/backends/{name}", h.delBackend)
	mux.HandleFunc("POST /v1/backends/{backend}/servers", h.addServer)
	mux.HandleFunc("DELETE /v1/backends/{backend}/servers/{server}", h.delServer)
	mux.HandleFunc("GET /v1/backends/{backend}/servers/{server}", h.getServer)
	mux.HandleFunc("POST /v1/switching-rules", h.addSwitchEntry)

	if s.checker != nil {
		healthHandlers := s.checker.CreateHandlers(s.build.Version, s.build.Commit, s.build.BuildTime)
		mux.HandleFunc("/health", healthHandlers.LivenessHandler)
		mux.HandleFunc("/ready", healthHandlers.ReadinessHandler)
		mux.HandleFunc("/version", healthHandlers.VersionHandler)
	}

	if s.cfg.MetricsEnabled && s.collector != nil {
		mux.Handle("/metrics", s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.TimeoutMiddleware(s.cfg.WriteTimeout)(handler)
	handler = middleware.CORSMiddleware(s.convertCORSConfig())(handler)
	if s.tracer != nil {
		handler = tracing.HTTPMiddleware(s.tracer, "adminapi")(handler)
	}
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:          s.cfg.CORS.Enabled,
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   s.cfg.CORS.AllowedMethods,
		AllowedHeaders:   s.cfg.CORS.AllowedHeaders,
		ExposedHeaders:   s.cfg.CORS.ExposedHeaders,
		MaxAge:           s.cfg.CORS.MaxAge,
		AllowCredentials: s.cfg.CORS.AllowCredentials,
	}
}
