package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
)

// Session is one connected messaging session. It is created by NewSession
// or Connect and lives until Disconnect.
type Session struct {
	client  Client
	handler EventHandler
	log     *zap.Logger

	mu        sync.RWMutex
	state     models.SessionState
	qrCode    string
	lastError string
	updatedAt time.Time

	readyOnce sync.Once
	ready     chan struct{}
	authFail  chan string

	leased atomic.Bool
	sendMu sync.Mutex
	// closed is set once the client is closed; its late events are dropped
	closed atomic.Bool
}

// NewSession wraps client in a session. Events are forwarded to handler
// after the session has updated its own state. handler may be nil.
func NewSession(client Client, handler EventHandler, log *zap.Logger) *Session {
	if handler == nil {
		handler = NopHandler{}
	}
	return &Session{
		client:    client,
		handler:   handler,
		log:       logger.OrNop(log),
		state:     models.SessionDisconnected,
		updatedAt: time.Now().UTC(),
		ready:     make(chan struct{}),
		authFail:  make(chan string, 1),
	}
}

// Connect creates a session and blocks until it is ready, see Open
func Connect(ctx context.Context, client Client, handler EventHandler, timeout time.Duration, log *zap.Logger) (*Session, error) {
	s := NewSession(client, handler, log)
	if err := s.Open(ctx, timeout); err != nil {
		return nil, err
	}
	return s, nil
}

// Open starts the client and waits for its ready event.
// It fails with ErrAuthFailure, ErrInitTimeout or the context's error;
// on failure the client is closed and the state is back to disconnected.
func (s *Session) Open(ctx context.Context, timeout time.Duration) error {
	s.setState(models.SessionConnecting, "")

	if err := s.client.Start(ctx, s); err != nil {
		s.setState(models.SessionDisconnected, err.Error())
		return fmt.Errorf("failed to start session: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		s.log.Info("session ready")
		return nil
	case reason := <-s.authFail:
		s.closeClient()
		s.setState(models.SessionDisconnected, reason)
		return fmt.Errorf("%w: %s", ErrAuthFailure, reason)
	case <-timer.C:
		s.closeClient()
		s.setState(models.SessionDisconnected, ErrInitTimeout.Error())
		return fmt.Errorf("session not ready after %s: %w", timeout, ErrInitTimeout)
	case <-ctx.Done():
		s.closeClient()
		s.setState(models.SessionDisconnected, ctx.Err().Error())
		return ctx.Err()
	}
}

// Disconnect closes the session. Events the client emits afterwards are ignored.
func (s *Session) Disconnect() error {
	s.closed.Store(true)
	err := s.client.Close()
	s.setState(models.SessionDisconnected, "")
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	s.log.Info("session disconnected")
	return nil
}

// Ready reports whether messages can be sent
func (s *Session) Ready() bool {
	return s.State() == models.SessionReady
}

// State returns the current lifecycle state
func (s *Session) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a snapshot of the session
func (s *Session) Status() models.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := models.SessionStatus{
		State:     s.state,
		LastError: s.lastError,
		UpdatedAt: s.updatedAt,
	}
	if s.state == models.SessionAwaitingScan {
		status.QRCode = s.qrCode
	}
	return status
}

// Send delivers one message outside of a campaign.
// It fails with ErrSessionBusy while a campaign holds the lease.
func (s *Session) Send(ctx context.Context, address, body string) error {
	if s.leased.Load() {
		return ErrSessionBusy
	}
	return s.send(ctx, address, body)
}

// Acquire leases the session exclusively, typically for one campaign
func (s *Session) Acquire() (*Lease, error) {
	if !s.leased.CompareAndSwap(false, true) {
		return nil, ErrSessionBusy
	}
	return &Lease{session: s}, nil
}

// Leased reports whether a campaign currently holds the session
func (s *Session) Leased() bool {
	return s.leased.Load()
}

func (s *Session) send(ctx context.Context, address, body string) error {
	if !s.Ready() {
		return ErrNotConnected
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.client.Send(ctx, address, body)
}

func (s *Session) closeClient() {
	s.closed.Store(true)
	if err := s.client.Close(); err != nil {
		s.log.Warn("failed to close client", zap.Error(err))
	}
}

func (s *Session) setState(state models.SessionState, lastError string) {
	s.mu.Lock()
	s.state = state
	if lastError != "" {
		s.lastError = lastError
	}
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// OnQRCode records the code the operator has to scan
func (s *Session) OnQRCode(code string) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	s.qrCode = code
	s.mu.Unlock()
	s.setState(models.SessionAwaitingScan, "")
	s.log.Info("qr code received, waiting for scan")
	s.handler.OnQRCode(code)
}

// OnAuthenticated records a successful scan
func (s *Session) OnAuthenticated() {
	if s.closed.Load() {
		return
	}
	s.setState(models.SessionAuthenticated, "")
	s.log.Info("session authenticated")
	s.handler.OnAuthenticated()
}

// OnReady marks the session usable and releases Open
func (s *Session) OnReady() {
	if s.closed.Load() {
		return
	}
	s.setState(models.SessionReady, "")
	s.readyOnce.Do(func() { close(s.ready) })
	s.handler.OnReady()
}

// OnAuthFailure records the failure and releases Open
func (s *Session) OnAuthFailure(reason string) {
	if s.closed.Load() {
		return
	}
	s.setState(models.SessionAuthFailed, reason)
	s.log.Warn("session authentication failed", zap.String("reason", reason))
	select {
	case s.authFail <- reason:
	default:
	}
	s.handler.OnAuthFailure(reason)
}

// OnDisconnected records that the transport dropped the session
func (s *Session) OnDisconnected(reason string) {
	if s.closed.Load() {
		return
	}
	s.setState(models.SessionDisconnected, reason)
	s.log.Warn("session disconnected", zap.String("reason", reason))
	s.handler.OnDisconnected(reason)
}

// Lease is exclusive use of a session. It satisfies the campaign engine's
// transport contract.
type Lease struct {
	session  *Session
	released atomic.Bool
}

// Ready reports whether the leased session can send
func (l *Lease) Ready() bool {
	return !l.released.Load() && l.session.Ready()
}

// Send delivers one message through the leased session
func (l *Lease) Send(ctx context.Context, address, body string) error {
	if l.released.Load() {
		return ErrLeaseReleased
	}
	return l.session.send(ctx, address, body)
}

// Release returns the session; calling it more than once is safe
func (l *Lease) Release() {
	if l.released.CompareAndSwap(false, true) {
		l.session.leased.Store(false)
	}
}
