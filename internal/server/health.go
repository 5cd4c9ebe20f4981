package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Health is the /health response body.
type Health struct {
	Status     HealthStatus `json:"status"`
	Timestamp  time.Time    `json:"timestamp"`
	Version    string       `json:"version,omitempty"`
	Database   string       `json:"database"`
	Sessions   int          `json:"sessions"`
	CSRFTokens int          `json:"csrf_tokens"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    s.cfg.Version,
		Database:   "up",
		Sessions:   s.cfg.Sessions.Len(),
		CSRFTokens: s.cfg.CSRF.Len(),
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.DB.Ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "health check failed", "component", "database", "err", err)
			h.Status = HealthStatusUnhealthy
			h.Database = "down"
		}
	}

	statusCode := http.StatusOK
	if h.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(h)
}
