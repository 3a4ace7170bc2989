package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// recordingHandler records session events as short strings
type recordingHandler struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHandler) record(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *recordingHandler) OnQRCode(code string)         { h.record("qr:" + code) }
func (h *recordingHandler) OnAuthenticated()             { h.record("authenticated") }
func (h *recordingHandler) OnReady()                     { h.record("ready") }
func (h *recordingHandler) OnAuthFailure(reason string)  { h.record("auth_failure:" + reason) }
func (h *recordingHandler) OnDisconnected(reason string) { h.record("disconnected:" + reason) }

// mockAcknowledger records acks and nacks of a delivery
type mockAcknowledger struct {
	Calls []string
}

func (m *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	m.Calls = append(m.Calls, fmt.Sprintf("ack:%d", tag))
	return nil
}

func (m *mockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	m.Calls = append(m.Calls, fmt.Sprintf("nack:%d:%t", tag, requeue))
	return nil
}

func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	m.Calls = append(m.Calls, fmt.Sprintf("reject:%d:%t", tag, requeue))
	return nil
}

// publishedMessage is one message handed to mockPublisher
type publishedMessage struct {
	Exchange   string
	RoutingKey string
	Msg        amqp.Publishing
}

// mockPublisher records publishings instead of talking to a broker
type mockPublisher struct {
	// PublishFunc, when set, runs after the message is recorded
	PublishFunc func(m publishedMessage) error

	mu       sync.Mutex
	messages []publishedMessage
}

func (m *mockPublisher) PublishJSON(ctx context.Context, exchange, routingKey string, v interface{}, opts ...PublishOption) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{ContentType: "application/json", Body: body}
	for _, opt := range opts {
		opt(&msg)
	}
	published := publishedMessage{Exchange: exchange, RoutingKey: routingKey, Msg: msg}

	m.mu.Lock()
	m.messages = append(m.messages, published)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(published)
	}
	return nil
}

func (m *mockPublisher) Messages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMessage(nil), m.messages...)
}
