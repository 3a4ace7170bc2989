package service

import (
	"context"
	"database/sql"
	"time"

	"bulksender/internal/models"
)

// Health status constants
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusUnhealthy    = "unhealthy"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

// HealthStatus represents the overall health status of the application
type HealthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// SessionStatusProvider reports the messaging session state
type SessionStatusProvider interface {
	Status() models.SessionStatus
}

// QueueStatusProvider reports whether the RabbitMQ connection is usable
type QueueStatusProvider interface {
	IsConnected() bool
}

// HealthChecker handles health check operations.
// db, queue and sessions are optional; an unset dependency is reported as disabled.
type HealthChecker struct {
	db       *sql.DB
	queue    QueueStatusProvider
	sessions SessionStatusProvider
	version  string
}

// NewHealthService creates a new HealthChecker instance
func NewHealthService(db *sql.DB, queue QueueStatusProvider, sessions SessionStatusProvider, version string) *HealthChecker {
	return &HealthChecker{
		db:       db,
		queue:    queue,
		sessions: sessions,
		version:  version,
	}
}

// checkDatabase verifies PostgreSQL connectivity with a timeout
func (h *HealthChecker) checkDatabase() string {
	if h.db == nil {
		return StatusDisabled
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// checkQueue verifies RabbitMQ connectivity
func (h *HealthChecker) checkQueue() string {
	if h.queue == nil {
		return StatusDisabled
	}
	if !h.queue.IsConnected() {
		return StatusDisconnected
	}
	return StatusConnected
}

func (h *HealthChecker) checkSession() string {
	if h.sessions == nil {
		return StatusDisabled
	}
	return string(h.sessions.Status().State)
}

// determineOverallStatus calculates the overall health status based on service statuses.
// A broken transport path makes the system unhealthy; a missing session or
// database only degrades it, since the operator can still connect or use CSV rows.
func (h *HealthChecker) determineOverallStatus(services map[string]string) string {
	if services["queue"] == StatusDisconnected {
		return StatusUnhealthy
	}
	if services["database"] == StatusDisconnected {
		return StatusDegraded
	}
	if session := services["session"]; session != string(models.SessionReady) && session != StatusDisabled {
		return StatusDegraded
	}
	return StatusHealthy
}

// CheckHealth performs health checks on all dependencies and returns the overall status
func (h *HealthChecker) CheckHealth() (*HealthStatus, error) {
	services := map[string]string{
		"database": h.checkDatabase(),
		"queue":    h.checkQueue(),
		"session":  h.checkSession(),
	}

	return &HealthStatus{
		Status:    h.determineOverallStatus(services),
		Services:  services,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}, nil
}
