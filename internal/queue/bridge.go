package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
	"bulksender/internal/transport"
)

// BridgeClient is a transport.Client that drives a session owned by a
// gateway process over RabbitMQ. Commands go to CommandQueue, session events
// come back on EventsExchange and every Send is a request/reply on
// OutboundQueue answered through direct reply-to.
type BridgeClient struct {
	conn        *Connection
	publisher   MessagePublisher
	sendTimeout time.Duration
	log         *zap.Logger

	mu      sync.Mutex
	events  transport.EventHandler
	pending map[string]chan models.SendReceipt
	started bool

	consumers []*Consumer
	closed    chan struct{}
	closeOnce sync.Once
}

// NewBridgeClient creates a bridge over conn. sendTimeout bounds the wait for
// a send receipt; zero waits for as long as the caller's context allows.
func NewBridgeClient(conn *Connection, sendTimeout time.Duration, log *zap.Logger) (*BridgeClient, error) {
	publisher, err := NewPublisher(conn)
	if err != nil {
		return nil, err
	}
	b := newBridgeClient(publisher, sendTimeout, log)
	b.conn = conn
	return b, nil
}

func newBridgeClient(publisher MessagePublisher, sendTimeout time.Duration, log *zap.Logger) *BridgeClient {
	return &BridgeClient{
		publisher:   publisher,
		sendTimeout: sendTimeout,
		log:         logger.OrNop(log),
		pending:     make(map[string]chan models.SendReceipt),
		closed:      make(chan struct{}),
	}
}

// Start subscribes to session events and receipts, then asks the gateway to connect
func (b *BridgeClient) Start(ctx context.Context, events transport.EventHandler) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("bridge already started")
	}
	b.started = true
	if events == nil {
		events = transport.NopHandler{}
	}
	b.events = events
	b.mu.Unlock()

	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		return err
	}

	listener, err := declareListener(ch, EventsExchange)
	if err != nil {
		return err
	}

	eventsConsumer, err := NewConsumer(b.conn, listener, b.handleEvent, ConsumerOptions{AutoAck: true}, b.log)
	if err != nil {
		return err
	}
	// Direct reply-to must be consumed on the publishing channel before the first request.
	receipts, err := NewConsumer(b.conn, DirectReplyTo, b.handleReceipt, ConsumerOptions{AutoAck: true}, b.log)
	if err != nil {
		return err
	}
	for _, c := range []*Consumer{eventsConsumer, receipts} {
		if err := c.Start(); err != nil {
			b.stopConsumers()
			return err
		}
		b.mu.Lock()
		b.consumers = append(b.consumers, c)
		b.mu.Unlock()
	}

	cmd := models.SessionCommand{Command: models.CommandConnect}
	if err := b.publisher.PublishJSON(ctx, "", CommandQueue, cmd, WithType(TypeSessionCommand)); err != nil {
		b.stopConsumers()
		return fmt.Errorf("failed to request session: %w", err)
	}

	b.log.Info("session requested from gateway")
	return nil
}

// Send publishes one outbound job and waits for the gateway's receipt.
// The job expires on the queue together with the wait, so a send reported
// as timed out is never delivered later.
func (b *BridgeClient) Send(ctx context.Context, address, body string) error {
	select {
	case <-b.closed:
		return transport.ErrNotConnected
	default:
	}

	if b.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.sendTimeout)
		defer cancel()
	}

	correlationID := uuid.NewString()
	reply := make(chan models.SendReceipt, 1)

	b.mu.Lock()
	b.pending[correlationID] = reply
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, correlationID)
		b.mu.Unlock()
	}()

	job := models.OutboundJob{Address: address, Body: body}
	if err := b.publisher.PublishJSON(ctx, "", OutboundQueue, job,
		WithReplyTo(DirectReplyTo, correlationID),
		WithType(TypeOutboundJob),
		WithExpiration(b.sendTimeout),
		Persistent(),
	); err != nil {
		return err
	}

	select {
	case receipt := <-reply:
		if !receipt.OK {
			return errors.New(receipt.Error)
		}
		return nil
	case <-b.closed:
		return transport.ErrNotConnected
	case <-ctx.Done():
		return fmt.Errorf("no receipt from gateway: %w", ctx.Err())
	}
}

// Close asks the gateway to disconnect and stops listening. It is idempotent.
func (b *BridgeClient) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)

		b.mu.Lock()
		started := b.started
		b.mu.Unlock()

		if started {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			cmd := models.SessionCommand{Command: models.CommandDisconnect}
			err = b.publisher.PublishJSON(ctx, "", CommandQueue, cmd, WithType(TypeSessionCommand))
		}
		b.stopConsumers()
	})
	return err
}

func (b *BridgeClient) stopConsumers() {
	b.mu.Lock()
	consumers := b.consumers
	b.consumers = nil
	b.mu.Unlock()

	for _, c := range consumers {
		_ = c.Stop()
	}
}

func (b *BridgeClient) handleEvent(d amqp.Delivery) error {
	var event models.SessionEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return fmt.Errorf("failed to unmarshal session event: %w", err)
	}

	b.mu.Lock()
	events := b.events
	b.mu.Unlock()

	b.log.Debug("session event", zap.String("type", string(event.Type)))
	DispatchEvent(event, events)
	return nil
}

func (b *BridgeClient) handleReceipt(d amqp.Delivery) error {
	var receipt models.SendReceipt
	if err := json.Unmarshal(d.Body, &receipt); err != nil {
		return fmt.Errorf("failed to unmarshal send receipt: %w", err)
	}

	b.mu.Lock()
	reply, ok := b.pending[d.CorrelationId]
	b.mu.Unlock()
	if !ok {
		b.log.Debug("receipt for unknown send", zap.String("correlation_id", d.CorrelationId))
		return nil
	}
	select {
	case reply <- receipt:
	default:
	}
	return nil
}

// DispatchEvent calls the handler method matching event
func DispatchEvent(event models.SessionEvent, handler transport.EventHandler) {
	switch event.Type {
	case models.EventQRCode:
		handler.OnQRCode(event.Data)
	case models.EventAuthenticated:
		handler.OnAuthenticated()
	case models.EventReady:
		handler.OnReady()
	case models.EventAuthFailure:
		handler.OnAuthFailure(event.Data)
	case models.EventDisconnected:
		handler.OnDisconnected(event.Data)
	}
}
