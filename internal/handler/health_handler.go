package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"bulksender/internal/service"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	healthService *service.HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(healthService *service.HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// HandleHealth handles GET requests to the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Method not allowed",
		})
		return
	}

	healthStatus, err := h.healthService.CheckHealth()
	if err != nil {
		// Handle health check error with 500 status
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Failed to perform health check",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")

	// Determine HTTP status code based on health status
	switch healthStatus.Status {
	case service.StatusHealthy, service.StatusDegraded:
		// A degraded process still serves previews and reports progress.
		w.WriteHeader(http.StatusOK)
	case service.StatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	// The status code is already written; an encoding failure can only be logged.
	if err := json.NewEncoder(w).Encode(healthStatus); err != nil {
		zap.L().Warn("failed to encode health status", zap.Error(err))
	}
}
