package transport

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulator is an in-process messaging client. It goes through the QR
// handshake and delivers messages with a configurable success rate.
type Simulator struct {
	successRate float64 // 0.0 to 1.0 (e.g., 0.95 = 95% success)
	minLatency  time.Duration
	maxLatency  time.Duration
	autoScan    bool
	scanDelay   time.Duration

	mu     sync.Mutex
	rand   *rand.Rand
	events EventHandler
	closed chan struct{}
	wg     sync.WaitGroup
}

// SimulatorOption configures a Simulator
type SimulatorOption func(*Simulator)

// WithLatency sets the simulated network latency range
func WithLatency(min, max time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if max < min {
			max = min
		}
		s.minLatency = min
		s.maxLatency = max
	}
}

// WithAutoScan makes the simulator authenticate by itself after delay
func WithAutoScan(delay time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.autoScan = true
		s.scanDelay = delay
	}
}

// WithSeed fixes the random source
func WithSeed(seed int64) SimulatorOption {
	return func(s *Simulator) {
		s.rand = rand.New(rand.NewSource(seed))
	}
}

// NewSimulator creates a simulated client.
// successRate: probability of successful send (0.0 to 1.0)
func NewSimulator(successRate float64, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		successRate: clampRate(successRate),
		minLatency:  50 * time.Millisecond,
		maxLatency:  200 * time.Millisecond,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start emits a QR code and, with auto scan, authenticates after the scan delay
func (s *Simulator) Start(ctx context.Context, events EventHandler) error {
	if events == nil {
		events = NopHandler{}
	}

	s.mu.Lock()
	if s.events != nil {
		s.mu.Unlock()
		return fmt.Errorf("simulator already started")
	}
	s.events = events
	s.closed = make(chan struct{})
	closed := s.closed
	s.mu.Unlock()

	events.OnQRCode("sim-" + uuid.NewString())

	if !s.autoScan {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.scanDelay)
		defer timer.Stop()

		select {
		case <-closed:
		case <-timer.C:
			events.OnAuthenticated()
			events.OnReady()
		}
	}()
	return nil
}

// Scan completes the QR handshake as if the operator scanned the code
func (s *Simulator) Scan() error {
	events, err := s.currentEvents()
	if err != nil {
		return err
	}
	events.OnAuthenticated()
	events.OnReady()
	return nil
}

// RejectScan fails the QR handshake
func (s *Simulator) RejectScan(reason string) error {
	events, err := s.currentEvents()
	if err != nil {
		return err
	}
	events.OnAuthFailure(reason)
	return nil
}

// Drop simulates the remote side ending the session
func (s *Simulator) Drop(reason string) error {
	events, err := s.currentEvents()
	if err != nil {
		return err
	}
	events.OnDisconnected(reason)
	return nil
}

// Send simulates delivering one message
func (s *Simulator) Send(ctx context.Context, address, body string) error {
	s.mu.Lock()
	if s.events == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	latency := s.minLatency
	if spread := s.maxLatency - s.minLatency; spread > 0 {
		latency += time.Duration(s.rand.Int63n(int64(spread)))
	}
	randomValue := s.rand.Float64()
	failureReason := simulatedFailures[s.rand.Intn(len(simulatedFailures))]
	s.mu.Unlock()

	// Simulate network latency
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if !strings.ContainsAny(strings.SplitN(address, "@", 2)[0], "0123456789") {
		return fmt.Errorf("invalid phone number: %s", address)
	}

	// Determine success based on configured success rate
	if randomValue >= s.GetSuccessRate() {
		return fmt.Errorf("failed to send to %s: %s", address, failureReason)
	}
	return nil
}

// Close ends the simulated session
func (s *Simulator) Close() error {
	s.mu.Lock()
	if s.events == nil {
		s.mu.Unlock()
		return nil
	}
	close(s.closed)
	s.events = nil
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// GetSuccessRate returns the configured success rate
func (s *Simulator) GetSuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRate
}

// SetSuccessRate updates the success rate (for testing)
func (s *Simulator) SetSuccessRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successRate = clampRate(rate)
}

func (s *Simulator) currentEvents() (EventHandler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return nil, fmt.Errorf("simulator not started")
	}
	return s.events, nil
}

var simulatedFailures = []string{
	"network timeout",
	"number is not registered",
	"rate limit exceeded",
	"service temporarily unavailable",
	"message rejected by recipient",
}

func clampRate(rate float64) float64 {
	if rate < 0.0 {
		return 0.0
	}
	if rate > 1.0 {
		return 1.0
	}
	return rate
}
