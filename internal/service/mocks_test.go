package service

import (
	"context"
	"sync"
	"time"

	"bulksender/internal/models"
)

// sendCall records one call to mockTransport.Send
type sendCall struct {
	Address string
	Body    string
}

// mockTransport is a Transport whose behaviour is set per test
type mockTransport struct {
	NotReady bool
	SendFunc func(ctx context.Context, address, body string) error

	mu    sync.Mutex
	sends []sendCall
}

func (m *mockTransport) Ready() bool {
	return !m.NotReady
}

func (m *mockTransport) Send(ctx context.Context, address, body string) error {
	m.mu.Lock()
	m.sends = append(m.sends, sendCall{Address: address, Body: body})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, address, body)
	}
	return nil
}

func (m *mockTransport) Sends() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sendCall(nil), m.sends...)
}

// recordingSleeper records pauses instead of sleeping
type recordingSleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
	// SleepFunc, when set, runs before the pause is recorded
	SleepFunc func(ctx context.Context) error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if s.SleepFunc != nil {
		if err := s.SleepFunc(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
	return ctx.Err()
}

func (s *recordingSleeper) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

// recordingSink collects notifications and the final result
type recordingSink struct {
	mu            sync.Mutex
	notifications []models.ProgressNotification
	result        *models.CampaignResult
}

func (s *recordingSink) OnProgress(n models.ProgressNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

func (s *recordingSink) OnResult(result *models.CampaignResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

func (s *recordingSink) Notifications() []models.ProgressNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ProgressNotification(nil), s.notifications...)
}

func (s *recordingSink) Result() *models.CampaignResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// newRows builds rows from plain values, indexed in order
func newRows(values ...map[string]interface{}) []models.Row {
	rows := make([]models.Row, len(values))
	for i, v := range values {
		rows[i] = models.NewRow(i, v)
	}
	return rows
}

// recordingEvents records the session events forwarded to the operator
type recordingEvents struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingEvents) add(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingEvents) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *recordingEvents) OnQRCode(code string)         { h.add("qr") }
func (h *recordingEvents) OnAuthenticated()             { h.add("authenticated") }
func (h *recordingEvents) OnReady()                     { h.add("ready") }
func (h *recordingEvents) OnAuthFailure(reason string)  { h.add("auth_failure:" + reason) }
func (h *recordingEvents) OnDisconnected(reason string) { h.add("disconnected:" + reason) }
