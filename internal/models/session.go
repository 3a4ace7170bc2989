package models

import "time"

// SessionState represents the lifecycle state of a messaging session
type SessionState string

const (
	SessionDisconnected  SessionState = "disconnected"
	SessionConnecting    SessionState = "connecting"
	SessionAwaitingScan  SessionState = "awaiting_scan"
	SessionAuthenticated SessionState = "authenticated"
	SessionReady         SessionState = "ready"
	SessionAuthFailed    SessionState = "auth_failed"
)

// SessionEventType identifies an event raised by the messaging session
type SessionEventType string

const (
	EventQRCode        SessionEventType = "qr"
	EventAuthenticated SessionEventType = "authenticated"
	EventReady         SessionEventType = "ready"
	EventAuthFailure   SessionEventType = "auth_failure"
	EventDisconnected  SessionEventType = "disconnected"
)

// SessionEvent is a session lifecycle event as carried over the queue
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	Data      string           `json:"data,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SessionCommand asks the gateway to open or close its session
type SessionCommand struct {
	Command string `json:"command"`
}

const (
	CommandConnect    = "connect"
	CommandDisconnect = "disconnect"
)

// OutboundJob is one message handed to the gateway for delivery
type OutboundJob struct {
	Address string `json:"address"`
	Body    string `json:"body"`
}

// SendReceipt is the gateway's reply to an OutboundJob
type SendReceipt struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SessionStatus is the externally visible view of a session
type SessionStatus struct {
	State     SessionState `json:"state"`
	QRCode    string       `json:"qr_code,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}
