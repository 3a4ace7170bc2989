// Package transport manages the lifecycle of the messaging session that
// campaigns are sent through.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrInitTimeout is returned when a session does not become ready in time
	ErrInitTimeout = errors.New("initialization timed out")
	// ErrAuthFailure is returned when the session rejects authentication
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNotConnected is returned when sending through a session that is not ready
	ErrNotConnected = errors.New("session is not connected")
	// ErrSessionBusy is returned when the session is leased to a running campaign
	ErrSessionBusy = errors.New("session is leased to a running campaign")
	// ErrLeaseReleased is returned when sending through a released lease
	ErrLeaseReleased = errors.New("session lease already released")
)

// EventHandler receives session lifecycle events.
// Implementations must not block; events arrive on the client's goroutine.
type EventHandler interface {
	OnQRCode(code string)
	OnAuthenticated()
	OnReady()
	OnAuthFailure(reason string)
	OnDisconnected(reason string)
}

// Client is a messaging transport implementation.
//
// Start begins authentication and returns once the attempt is underway;
// progress is reported through events. Send delivers one message and
// returns once it is accepted or rejected. Callers never issue two Sends
// at the same time.
type Client interface {
	Start(ctx context.Context, events EventHandler) error
	Send(ctx context.Context, address, body string) error
	Close() error
}

// NopHandler ignores every event
type NopHandler struct{}

func (NopHandler) OnQRCode(string) {}
func (NopHandler) OnAuthenticated() {}
func (NopHandler) OnReady() {}
func (NopHandler) OnAuthFailure(string) {}
func (NopHandler) OnDisconnected(string) {}
