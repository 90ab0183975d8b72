// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/tradelab/internal/api/handler/api"
	"github.com/newthinker/tradelab/internal/api/job"
	"github.com/newthinker/tradelab/internal/api/middleware"
	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for TradeLab
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	backtests  *api.BacktestHandler
	version    string
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	APIKey         string
	JobTTL         time.Duration
	MaxJobs        int
	MetricsEnabled bool
	MetricsPath    string
	Version        string
}

// Dependencies holds the services the handlers call into
type Dependencies struct {
	App *app.App
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, errors.New("api: app is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	mux := http.NewServeMux()
	s := &Server{
		logger:  logger,
		mux:     mux,
		version: cfg.Version,
	}
	s.setupRoutes(cfg, deps)

	reg := deps.App.Metrics()
	s.handler = metrics.LoggingMiddleware(logger)(metrics.HTTPMiddleware(reg)(mux))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // synchronous backtests can run for minutes
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	auth := middleware.APIKeyAuth(cfg.APIKey)
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	s.backtests = api.NewBacktestHandler(deps.App, job.NewStore(cfg.MaxJobs, cfg.JobTTL), s.logger)
	summaries := api.NewSummaryHandler(deps.App)
	strategies := api.NewStrategiesHandler(deps.App)
	runs := api.NewRunsHandler(deps.App)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.App.Metrics(), promhttp.HandlerOpts{}))
	}

	s.mux.Handle("POST /api/run_backtest", protect(s.backtests.Run))
	s.mux.Handle("POST /api/ai_summary", protect(summaries.Create))

	s.mux.Handle("GET /api/v1/strategies", protect(strategies.List))
	s.mux.Handle("POST /api/v1/backtest", protect(s.backtests.Create))
	s.mux.Handle("GET /api/v1/backtest/{id}", protect(s.backtests.GetStatus))
	s.mux.Handle("GET /api/v1/runs", protect(runs.List))
	s.mux.Handle("GET /api/v1/runs/{id}", protect(runs.Get))
	s.mux.Handle("GET /api/v1/runs/{id}/result", protect(runs.Result))
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and waits for running jobs
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.backtests.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("backtest jobs still running at shutdown")
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
