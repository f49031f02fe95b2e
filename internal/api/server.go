package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	handlerapi "github.com/newthinker/signalboard/internal/api/handler/api"
	"github.com/newthinker/signalboard/internal/api/handler/web"
	"github.com/newthinker/signalboard/internal/backend"
	"github.com/newthinker/signalboard/internal/metrics"
	"github.com/newthinker/signalboard/internal/render"
)

// Server represents the HTTP server for signalboard
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	TemplatesDir string
	// MetricsPath is left unrouted when empty.
	MetricsPath string
}

// Dependencies are the components the routes serve.
type Dependencies struct {
	Board        *render.Board
	Source       backend.Source
	Metrics      *metrics.Registry
	DefaultLimit int
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	var handler http.Handler = mux
	handler = metrics.LoggingMiddleware(logger)(handler)
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	webHandler, err := web.NewHandler(cfg.TemplatesDir, deps.Board)
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	s.mux.HandleFunc("GET /{$}", webHandler.Index)
	s.mux.HandleFunc("GET /dashboard/{region}", webHandler.Dashboard)

	regions := handlerapi.NewRegionsHandler(deps.Board, deps.Source, deps.DefaultLimit)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/regions", regions.List)
	s.mux.HandleFunc("GET /api/regions/{region}", regions.Get)
	s.mux.HandleFunc("POST /api/regions/{region}/render", regions.Render)
	s.mux.HandleFunc("GET /api/regions/{region}/explain", regions.Explain)

	if cfg.MetricsPath != "" && deps.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, deps.Metrics.Handler())
	}

	return nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
