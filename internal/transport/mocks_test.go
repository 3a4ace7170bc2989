package transport

import (
	"context"
	"sync"
)

// mockClient is a Client whose behaviour is set per test
type mockClient struct {
	StartFunc func(ctx context.Context, events EventHandler) error
	SendFunc  func(ctx context.Context, address, body string) error
	CloseFunc func() error

	mu     sync.Mutex
	events EventHandler
	calls  map[string]int
}

func newMockClient() *mockClient {
	return &mockClient{calls: make(map[string]int)}
}

func (m *mockClient) Start(ctx context.Context, events EventHandler) error {
	m.mu.Lock()
	m.calls["Start"]++
	m.events = events
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx, events)
	}
	return nil
}

func (m *mockClient) Send(ctx context.Context, address, body string) error {
	m.mu.Lock()
	m.calls["Send"]++
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, address, body)
	}
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	m.calls["Close"]++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *mockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// recordingHandler records the events it receives, in order
type recordingHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHandler) add(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *recordingHandler) OnQRCode(code string)         { h.add("qr") }
func (h *recordingHandler) OnAuthenticated()             { h.add("authenticated") }
func (h *recordingHandler) OnReady()                     { h.add("ready") }
func (h *recordingHandler) OnAuthFailure(reason string)  { h.add("auth_failure:" + reason) }
func (h *recordingHandler) OnDisconnected(reason string) { h.add("disconnected:" + reason) }
