package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
	"bulksender/internal/transport"
)

// ClientFactory builds a fresh transport client for each connection attempt
type ClientFactory func() (transport.Client, error)

// SessionService owns the single messaging session of the process
type SessionService struct {
	factory      ClientFactory
	handler      transport.EventHandler
	readyTimeout time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	session *transport.Session
	cancel  context.CancelFunc
}

// NewSessionService creates a session service. handler receives every
// session event after the session has processed it; it may be nil.
func NewSessionService(factory ClientFactory, handler transport.EventHandler, readyTimeout time.Duration, log *zap.Logger) *SessionService {
	return &SessionService{
		factory:      factory,
		handler:      handler,
		readyTimeout: readyTimeout,
		log:          logger.OrNop(log),
	}
}

// Connect starts a new session in the background and returns immediately.
// Progress (QR code, ready, failure) is visible through Status.
func (s *SessionService) Connect(ctx context.Context) error {
	session, openCtx, err := s.prepare(ctx)
	if err != nil {
		return err
	}

	go func() {
		if err := session.Open(openCtx, s.readyTimeout); err != nil {
			s.log.Warn("session failed to connect", zap.Error(err))
		}
	}()
	return nil
}

// ConnectAndWait starts a new session and blocks until it is ready
func (s *SessionService) ConnectAndWait(ctx context.Context) error {
	session, openCtx, err := s.prepare(ctx)
	if err != nil {
		return err
	}
	if err := session.Open(openCtx, s.readyTimeout); err != nil {
		return &UnavailableError{Dependency: "session", Err: err}
	}
	return nil
}

func (s *SessionService) prepare(ctx context.Context) (*transport.Session, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		switch s.session.State() {
		case models.SessionReady, models.SessionConnecting, models.SessionAwaitingScan, models.SessionAuthenticated:
			return nil, nil, &ConflictError{Resource: "session", Message: fmt.Sprintf("session is already %s", s.session.State())}
		}
		_ = s.closeLocked()
	}

	client, err := s.factory()
	if err != nil {
		return nil, nil, &UnavailableError{Dependency: "transport", Err: err}
	}

	openCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.session = transport.NewSession(client, s.handler, s.log.Named("session"))
	s.cancel = cancel
	return s.session, openCtx, nil
}

// Disconnect closes the current session. It is refused while a campaign runs.
func (s *SessionService) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return &NotFoundError{Resource: "session", ID: "current"}
	}
	if s.session.Leased() {
		return &ConflictError{Resource: "session", Message: "a campaign is running"}
	}

	return s.closeLocked()
}

// closeLocked releases the current session and its client. s.mu must be held.
func (s *SessionService) closeLocked() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	err := s.session.Disconnect()
	if err != nil {
		s.log.Warn("failed to close session", zap.Error(err))
	}
	s.session = nil
	return err
}

// Status returns the state of the current session
func (s *SessionService) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return models.SessionStatus{State: models.SessionDisconnected, UpdatedAt: time.Now().UTC()}
	}
	return s.session.Status()
}

// Acquire leases the ready session for one campaign
func (s *SessionService) Acquire() (*transport.Lease, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil || !session.Ready() {
		return nil, &UnavailableError{Dependency: "session", Err: ErrTransportNotReady}
	}

	lease, err := session.Acquire()
	if errors.Is(err, transport.ErrSessionBusy) {
		return nil, &ConflictError{Resource: "session", Message: ErrCampaignRunning.Error()}
	}
	return lease, err
}

// Ready reports whether a session is connected and usable
func (s *SessionService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.Ready()
}
