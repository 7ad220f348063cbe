package server

import (
	"net/http"

	"github.com/jrsteele09/funeral-coordinator/internal/metrics"
)

type healthResponse struct {
	Status          string `json:"status"`
	CanvaConfigured bool   `json:"canvaConfigured"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", CanvaConfigured: s.Configured()})
	}
}

func (s *Server) MetricsHandler() http.HandlerFunc {
	return metrics.Handler().ServeHTTP
}

// PreflightHandler answers OPTIONS requests that reach it without an Origin
// header; CorsMiddleware handles the rest.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
