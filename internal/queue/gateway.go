package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
	"bulksender/internal/transport"
)

// Gateway owns the messaging session on behalf of remote BridgeClients.
// It executes connect/disconnect commands, sends outbound jobs one at a time
// and publishes session events and send receipts back.
type Gateway struct {
	conn         *Connection
	publisher    *Publisher
	newClient    func() transport.Client
	readyTimeout time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	session *transport.Session
	cancel  context.CancelFunc

	consumers []*Consumer
}

// NewGateway creates a gateway that builds a client with newClient for every
// connect command
func NewGateway(conn *Connection, newClient func() transport.Client, readyTimeout time.Duration, log *zap.Logger) (*Gateway, error) {
	publisher, err := NewPublisher(conn)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		conn:         conn,
		publisher:    publisher,
		newClient:    newClient,
		readyTimeout: readyTimeout,
		log:          logger.OrNop(log),
	}, nil
}

// Start declares the topology and begins consuming commands and jobs
func (g *Gateway) Start() error {
	ch, err := g.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		return err
	}

	commands, err := NewConsumer(g.conn, CommandQueue, g.handleCommand, ConsumerOptions{Prefetch: 1}, g.log)
	if err != nil {
		return err
	}
	jobs, err := NewConsumer(g.conn, OutboundQueue, g.handleJob, ConsumerOptions{Prefetch: 1}, g.log)
	if err != nil {
		return err
	}

	for _, c := range []*Consumer{commands, jobs} {
		if err := c.Start(); err != nil {
			g.stopConsumers()
			return err
		}
		g.consumers = append(g.consumers, c)
	}
	return nil
}

// Stop stops consuming and disconnects the session
func (g *Gateway) Stop() error {
	g.stopConsumers()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closeSession()
}

func (g *Gateway) stopConsumers() {
	for _, c := range g.consumers {
		_ = c.Stop()
	}
	g.consumers = nil
}

func (g *Gateway) handleCommand(d amqp.Delivery) error {
	var cmd models.SessionCommand
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		// Malformed commands are dropped, not retried.
		g.log.Warn("discarding malformed command", zap.Error(err))
		return nil
	}

	g.log.Info("session command", zap.String("command", cmd.Command))

	switch cmd.Command {
	case models.CommandConnect:
		g.connect()
	case models.CommandDisconnect:
		g.mu.Lock()
		err := g.closeSession()
		g.mu.Unlock()
		if err != nil {
			g.log.Warn("disconnect failed", zap.Error(err))
		}
	default:
		g.log.Warn("unknown command", zap.String("command", cmd.Command))
	}
	return nil
}

// connect opens a new session, or re-announces the current one when it is already ready
func (g *Gateway) connect() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session != nil && g.session.Ready() {
		g.OnReady()
		return
	}
	if err := g.closeSession(); err != nil {
		g.log.Warn("failed to close previous session", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := transport.NewSession(g.newClient(), g, g.log.Named("session"))
	g.session = session
	g.cancel = cancel

	go func() {
		if err := session.Open(ctx, g.readyTimeout); err != nil {
			g.log.Warn("session failed to connect", zap.Error(err))
		}
	}()
}

// closeSession must be called with g.mu held
func (g *Gateway) closeSession() error {
	if g.session == nil {
		return nil
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	err := g.session.Disconnect()
	g.session = nil
	return err
}

func (g *Gateway) handleJob(d amqp.Delivery) error {
	var job models.OutboundJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		g.log.Warn("discarding malformed job", zap.Error(err))
		return nil
	}

	g.mu.Lock()
	session := g.session
	g.mu.Unlock()

	receipt := models.SendReceipt{OK: true}
	if session == nil {
		receipt = models.SendReceipt{Error: transport.ErrNotConnected.Error()}
	} else if err := session.Send(context.Background(), job.Address, job.Body); err != nil {
		receipt = models.SendReceipt{Error: err.Error()}
	}

	if !receipt.OK {
		g.log.Warn("send failed", zap.String("address", logger.MaskAddress(job.Address)), zap.String("error", receipt.Error))
	}

	if d.ReplyTo == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.publisher.PublishJSON(ctx, "", d.ReplyTo, receipt,
		WithCorrelationID(d.CorrelationId),
		WithType(TypeSendReceipt),
	)
}

func (g *Gateway) publishEvent(eventType models.SessionEventType, data string) {
	event := models.SessionEvent{Type: eventType, Data: data, Timestamp: time.Now().UTC()}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.publisher.PublishJSON(ctx, EventsExchange, "", event, WithType(TypeSessionEvent)); err != nil {
		g.log.Error("failed to publish session event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

// OnQRCode publishes the pairing code
func (g *Gateway) OnQRCode(code string) { g.publishEvent(models.EventQRCode, code) }

// OnAuthenticated publishes the authenticated event
func (g *Gateway) OnAuthenticated() { g.publishEvent(models.EventAuthenticated, "") }

// OnReady publishes the ready event
func (g *Gateway) OnReady() { g.publishEvent(models.EventReady, "") }

// OnAuthFailure publishes the authentication failure
func (g *Gateway) OnAuthFailure(reason string) { g.publishEvent(models.EventAuthFailure, reason) }

// OnDisconnected publishes the disconnection
func (g *Gateway) OnDisconnected(reason string) { g.publishEvent(models.EventDisconnected, reason) }
