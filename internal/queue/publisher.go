package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessagePublisher publishes a value as a JSON message
type MessagePublisher interface {
	PublishJSON(ctx context.Context, exchange, routingKey string, v interface{}, opts ...PublishOption) error
}

// Publisher publishes JSON messages to RabbitMQ
type Publisher struct {
	conn *Connection
}

// PublishOption customizes a single publishing
type PublishOption func(*amqp.Publishing)

// WithReplyTo asks the consumer to answer on replyTo, tagged with correlationID
func WithReplyTo(replyTo, correlationID string) PublishOption {
	return func(p *amqp.Publishing) {
		p.ReplyTo = replyTo
		p.CorrelationId = correlationID
	}
}

// WithCorrelationID tags a reply with the id of the request it answers
func WithCorrelationID(correlationID string) PublishOption {
	return func(p *amqp.Publishing) {
		p.CorrelationId = correlationID
	}
}

// WithType sets the message type property
func WithType(messageType string) PublishOption {
	return func(p *amqp.Publishing) {
		p.Type = messageType
	}
}

// Persistent marks the message to survive a broker restart
func Persistent() PublishOption {
	return func(p *amqp.Publishing) {
		p.DeliveryMode = amqp.Persistent
	}
}

// WithExpiration lets the broker drop the message if it is still queued after ttl
func WithExpiration(ttl time.Duration) PublishOption {
	return func(p *amqp.Publishing) {
		if ttl > 0 {
			p.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}
}

// NewPublisher creates a new publisher instance
func NewPublisher(conn *Connection) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	return &Publisher{conn: conn}, nil
}

// PublishJSON marshals v and publishes it to exchange with routingKey.
// An empty exchange publishes straight to the queue named by routingKey.
func (p *Publisher) PublishJSON(ctx context.Context, exchange, routingKey string, v interface{}, opts ...PublishOption) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	msg := amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	}
	for _, opt := range opts {
		opt(&msg)
	}

	if err := ch.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the publisher (no-op, connection managed externally)
func (p *Publisher) Close() error {
	return nil
}
