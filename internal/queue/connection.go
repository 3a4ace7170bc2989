package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bulksender/internal/logger"
)

const heartbeat = 10 * time.Second

// Connection is a RabbitMQ connection that redials on demand.
// Every publisher and consumer built on one Connection shares its channel.
type Connection struct {
	url  string
	name string
	log  *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewConnection dials url and opens the shared channel. The connection is
// named after the running binary so it can be told apart in the broker UI.
func NewConnection(url string, log *zap.Logger) (*Connection, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url cannot be empty")
	}

	c := &Connection{
		url:  url,
		name: "bulksender-" + filepath.Base(os.Args[0]),
		log:  logger.OrNop(log),
	}
	if err := c.dial(); err != nil {
		return nil, err
	}

	c.log.Info("connected to rabbitmq", zap.String("connection_name", c.name))
	return c, nil
}

// Channel returns the shared channel, redialing when the channel or the
// connection has been closed by the broker
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() && c.conn != nil && !c.conn.IsClosed() {
		return c.channel, nil
	}

	c.log.Warn("rabbitmq channel closed, reconnecting")
	_ = c.closeLocked()
	if err := c.dial(); err != nil {
		return nil, fmt.Errorf("failed to reconnect: %w", err)
	}
	c.log.Info("reconnected to rabbitmq")
	return c.channel, nil
}

// dial must be called with c.mu held or before c is shared
func (c *Connection) dial() error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: amqp.Table{"connection_name": c.name},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// closeLocked closes the channel and the connection, returning what failed
func (c *Connection) closeLocked() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}
	return errors.Join(errs...)
}

// Close closes the connection gracefully
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.closeLocked(); err != nil {
		return err
	}
	c.log.Info("rabbitmq connection closed")
	return nil
}

// IsConnected reports whether the shared channel is usable
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed()
}
