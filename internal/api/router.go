package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Dashboard state
		r.Get("/state", s.handleGetState)

		// Channel commands (heaters and pump)
		r.Put("/channels/{channel}", s.handleSetChannel)

		// Control mode
		r.Put("/mode", s.handleSetMode)

		// Command log
		r.Get("/history", s.handleListHistory)

		// Real-time updates
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status, including the broker link
// state so dashboards can surface connectivity at a glance.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"connection": snap.ConnectionName(),
	})
}
