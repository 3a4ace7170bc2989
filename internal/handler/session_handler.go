package handler

import (
	"net/http"

	"bulksender/internal/service"
)

// SessionHandler handles HTTP requests that control the messaging session
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// Connect handles POST /session/connect - starts authentication in the background.
// The QR code to scan shows up in GET /session.
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.Connect(r.Context()); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, h.sessionService.Status())
}

// Status handles GET /session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteOK(w, h.sessionService.Status())
}

// Disconnect handles DELETE /session
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.Disconnect(); err != nil {
		HandleServiceError(w, err)
		return
	}

	WriteNoContent(w)
}
