package queue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"bulksender/internal/logger"
)

// DeliveryHandler processes one delivery. Returning an error rejects it.
type DeliveryHandler func(d amqp.Delivery) error

// ConsumerOptions controls how a queue is consumed
type ConsumerOptions struct {
	// AutoAck lets the broker forget a delivery as soon as it is sent
	AutoAck bool
	// Requeue puts rejected deliveries back on the queue
	Requeue bool
	// Prefetch limits unacknowledged deliveries; zero leaves QoS untouched
	Prefetch int
}

// Consumer consumes messages from a RabbitMQ queue
type Consumer struct {
	conn      *Connection
	queueName string
	handler   DeliveryHandler
	opts      ConsumerOptions
	log       *zap.Logger

	mu       sync.Mutex
	channel  *amqp.Channel
	tag      string
	started  bool
	stopped  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewConsumer creates a new consumer instance. The queue must already exist.
func NewConsumer(conn *Connection, queueName string, handler DeliveryHandler, opts ConsumerOptions, log *zap.Logger) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		opts:      opts,
		log:       logger.OrNop(log).With(zap.String("queue", queueName)),
		tag:       queueName + "-" + uuid.NewString(),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}, nil
}

// Start starts consuming messages from the queue
func (c *Consumer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("consumer already started")
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	if c.opts.Prefetch > 0 {
		if err := ch.Qos(c.opts.Prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		c.queueName,
		c.tag,
		c.opts.AutoAck,
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.channel = ch
	c.started = true

	go func() {
		defer close(c.doneChan)

		for {
			select {
			case <-c.stopChan:
				c.log.Debug("consumer stopping")
				return
			case d, ok := <-msgs:
				if !ok {
					c.log.Warn("delivery channel closed")
					return
				}
				c.process(d)
			}
		}
	}()

	c.log.Info("consumer started")
	return nil
}

func (c *Consumer) process(d amqp.Delivery) {
	err := c.handler(d)
	if c.opts.AutoAck {
		if err != nil {
			c.log.Error("error processing message", zap.Error(err))
		}
		return
	}

	if err != nil {
		c.log.Error("error processing message", zap.Error(err), zap.Bool("requeue", c.opts.Requeue))
		_ = d.Nack(false, c.opts.Requeue)
		return
	}
	_ = d.Ack(false)
}

// Stop stops consuming messages gracefully. It is safe to call more than once.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	started := c.started
	ch := c.channel
	close(c.stopChan)
	c.mu.Unlock()

	if started {
		<-c.doneChan
		// The channel is shared; only this consumer is cancelled.
		if !ch.IsClosed() {
			if err := ch.Cancel(c.tag, false); err != nil {
				c.log.Warn("failed to cancel consumer", zap.Error(err))
			}
		}
	}
	c.log.Info("consumer stopped")
	return nil
}
