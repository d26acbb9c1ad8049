// Package server assembles a runnable HTTP service around an engine:
// configuration-driven middleware, controller auto-registration, a
// bounded worker pool, health and metrics endpoints, and graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stratushq/stratus"
	"github.com/stratushq/stratus/config"
	"github.com/stratushq/stratus/health"
	"github.com/stratushq/stratus/internal/workerpool"
	"github.com/stratushq/stratus/metrics"
	"github.com/stratushq/stratus/middleware"
)

type Server struct {
	cfg     *config.Config
	engine  *stratus.Engine
	logger  *slog.Logger
	handler http.Handler

	pool    *workerpool.Pool
	limiter *middleware.Limiter
	checker *health.Checker
	metrics *metrics.Metrics

	httpServer    *http.Server
	metricsServer *http.Server
}

// New wires an engine into a servable stack. Controllers from the
// shared factory registry are registered first when auto-registration
// is on, then the configured engine-level middleware is applied in a
// fixed order: request IDs, access logging, API key auth, rate
// limiting.
func New(cfg *config.Config, engine *stratus.Engine, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
	}

	if cfg.Registration.AutoRegister {
		for _, factory := range stratus.ControllerFactories(cfg.Registration.Prefix) {
			if err := engine.RegisterController(factory.New()); err != nil {
				return nil, fmt.Errorf("failed to register controller %s: %w", factory.Name, err)
			}
			logger.Info("controller registered", "controller", factory.Name)
		}
	}

	if cfg.Metrics.Enabled {
		s.metrics = metrics.New(metrics.Config{LatencyBuckets: cfg.Metrics.LatencyBuckets})
		engine.SetMetrics(s.metrics)
	}

	engine.Use(middleware.RequestID())

	if cfg.Server.Verbose {
		engine.Use(middleware.AccessLog(logger))
	}

	if cfg.Security.RequireAPIKey {
		engine.Use(middleware.APIKeyAuth(cfg.Security.APIKeys...))
	}

	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewLimiter(middleware.LimiterConfig{
			DefaultRPS:      cfg.RateLimit.DefaultRPS,
			DefaultBurst:    cfg.RateLimit.DefaultBurst,
			CleanupInterval: time.Duration(cfg.RateLimit.CleanupInterval),
		})
		engine.Use(middleware.RateLimit(s.limiter, nil))
	}

	var engineHandler http.Handler = engine
	if cfg.Server.WorkerPoolSize > 0 {
		s.pool = workerpool.New(cfg.Server.WorkerPoolSize)
		engineHandler = s.pool.Wrap(engine)
	}

	mux := http.NewServeMux()
	mux.Handle("/", engineHandler)

	if cfg.Health.Enabled {
		s.checker = health.NewChecker(time.Duration(cfg.Health.Interval), logger)
		mux.Handle(cfg.Health.Path, s.checker.Handler())
	}

	s.handler = mux
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, s.metrics.Handler())
		s.metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
	}

	return s, nil
}

// RegisterProbe adds a health probe evaluated by the background
// checker. No-op when health reporting is disabled.
func (s *Server) RegisterProbe(name string, probe health.ProbeFunc) {
	if s.checker != nil {
		s.checker.Register(name, probe)
	}
}

// Handler returns the assembled root handler, which is what Run
// serves. Useful for driving the full stack with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Engine returns the wrapped engine.
func (s *Server) Engine() *stratus.Engine {
	return s.engine
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// PoolStats reports worker pool usage, zero values when unbounded.
func (s *Server) PoolStats() workerpool.Stats {
	if s.pool == nil {
		return workerpool.Stats{}
	}
	return s.pool.Stats()
}

// Run serves until ctx is canceled or the listener fails, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if s.checker != nil {
		s.checker.Start()
	}
	if s.limiter != nil {
		defer s.limiter.Stop()
	}

	for _, route := range s.engine.Routes() {
		s.logger.Debug("route registered", "method", route.Method, "path", route.Path, "name", route.Name)
	}

	errCh := make(chan error, 2)

	if s.metricsServer != nil {
		go func() {
			s.logger.Info("metrics server starting", "address", s.metricsServer.Addr, "path", s.cfg.Metrics.Path)
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		s.logger.Info("server starting", "address", s.httpServer.Addr, "routes", len(s.engine.Routes()), "worker_pool", s.cfg.Server.WorkerPoolSize)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server...")
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Server.ShutdownTimeout))
	defer cancel()

	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(shutdownCtx)
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if s.checker != nil {
		s.checker.Stop()
	}

	s.logger.Info("server gracefully stopped")
	return runErr
}
