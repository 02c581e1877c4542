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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/lights", func(r chi.Router) {
			r.Get("/", s.handleListLights)
			r.Get("/{id}", s.handleGetLight)
		})
	})

	return r
}

// handleHealth returns the bridge health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"lights":  s.registry.Len(),
	}
	if s.stream != nil {
		body["stream_connected"] = s.stream.Connected()
	}
	writeJSON(w, http.StatusOK, body)
}
