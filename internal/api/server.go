// Package api exposes deck analysis, comparison and optimization over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ramonehamilton/deck-engine/internal/analysis"
	"github.com/ramonehamilton/deck-engine/internal/api/handlers"
	"github.com/ramonehamilton/deck-engine/internal/api/websocket"
	"github.com/ramonehamilton/deck-engine/internal/matchup"
	"github.com/ramonehamilton/deck-engine/internal/metrics"
	"github.com/ramonehamilton/deck-engine/internal/recommendations"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int
	origins    []string
	timeout    time.Duration
	logger     *slog.Logger

	wsHub *websocket.Hub

	analyzer   *analysis.Analyzer
	optimizer  *recommendations.Optimizer
	comparator *matchup.Comparator
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	defaults   handlers.OptimizeDefaults
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string

	// RequestTimeout bounds every request. Zero uses 60s.
	RequestTimeout time.Duration

	// Defaults for optimization requests.
	Optimize handlers.OptimizeDefaults
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "https://localhost:*"},
		RequestTimeout: 60 * time.Second,
		Optimize: handlers.OptimizeDefaults{
			Format:            "standard",
			AcceptableChanges: recommendations.DefaultAcceptableChanges,
		},
	}
}

// Deps are the engine components the server exposes.
type Deps struct {
	Analyzer   *analysis.Analyzer
	Optimizer  *recommendations.Optimizer
	Comparator *matchup.Comparator

	// Hub receives optimization progress; construct the optimizer with
	// recommendations.WithProgress(websocket.ProgressForwarder(hub)).
	// A nil hub gets a fresh one.
	Hub *websocket.Hub

	Metrics *metrics.Metrics

	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := deps.Hub
	if hub == nil {
		hub = websocket.NewHub(logger)
	}
	comparator := deps.Comparator
	if comparator == nil {
		comparator = matchup.NewComparator(deps.Analyzer.Tables())
	}
	optimizer := deps.Optimizer
	if optimizer == nil {
		optimizer = recommendations.NewOptimizer(deps.Analyzer,
			recommendations.WithLogger(logger),
			recommendations.WithMetrics(deps.Metrics),
			recommendations.WithProgress(websocket.ProgressForwarder(hub)))
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s := &Server{
		router:     chi.NewRouter(),
		port:       cfg.Port,
		origins:    cfg.AllowedOrigins,
		timeout:    timeout,
		logger:     logger,
		wsHub:      hub,
		analyzer:   deps.Analyzer,
		optimizer:  optimizer,
		comparator: comparator,
		metrics:    deps.Metrics,
		gatherer:   deps.Gatherer,
		defaults:   cfg.Optimize,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.timeout))

	origins := s.origins
	if len(origins) == 0 {
		origins = DefaultConfig().AllowedOrigins
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Content-Type enforcement for POST/PUT/PATCH only (not GET/DELETE/OPTIONS)
	s.router.Use(jsonContentTypeMiddleware)
}

// requestLogger logs each request and records its duration per route.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(route, r.Method, status, elapsed)
		s.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// WebSocketHub returns the hub that streams optimization progress.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
