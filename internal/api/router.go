package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramonehamilton/deck-engine/internal/api/handlers"
	"github.com/ramonehamilton/deck-engine/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	if s.gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// WebSocket endpoint for optimization progress
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		analysisHandler := handlers.NewAnalysisHandler(s.analyzer, s.comparator, s.defaults.Format, s.logger)
		r.Post("/analyze", analysisHandler.Analyze)
		r.Post("/analyze/chart", analysisHandler.AnalyzeChart)
		r.Post("/compare", analysisHandler.Compare)
		r.Post("/compare/chart", analysisHandler.CompareChart)

		optimizeHandler := handlers.NewOptimizeHandler(s.optimizer, s.defaults, s.logger)
		r.Post("/optimize", optimizeHandler.Optimize)

		systemHandler := handlers.NewSystemHandler(s.analyzer.Tables())
		r.Get("/version", systemHandler.GetVersion)
		r.Get("/formats", systemHandler.GetFormats)
	})
}

// healthCheck returns the server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]any{
		"status":    "healthy",
		"ws_client": s.wsHub.ClientCount(),
	})
}
