package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/thermostat", func(r chi.Router) {
			r.Get("/", s.handleGetThermostat)
			r.Put("/target", s.handleSetTarget)
			r.Put("/mode", s.handleSetMode)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// Database states reported by the health endpoint.
const (
	databaseOK       = "ok"
	databaseError    = "error"
	databaseDisabled = "disabled"
)

// handleHealth reports the broker session and settings store. The status is
// "degraded" while either is unavailable; the endpoint itself answers 200 as
// long as the process is serving.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	connected := false
	if s.mqtt != nil {
		if err := s.mqtt.HealthCheck(ctx); err == nil {
			connected = true
		}
	}

	database := databaseDisabled
	if s.database != nil {
		database = databaseOK
		if err := s.database.HealthCheck(ctx); err != nil {
			database = databaseError
			s.logger.Warn("database health check failed", "error", err)
		}
	}

	status := "ok"
	if !connected || database == databaseError {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"mqtt_connected": connected,
		"database":       database,
	})
}
