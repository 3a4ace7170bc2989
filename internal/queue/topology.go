package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Names shared by the API process and the gateway
const (
	// OutboundQueue carries one OutboundJob per message to send
	OutboundQueue = "outbound_messages"
	// CommandQueue carries connect/disconnect commands for the gateway
	CommandQueue = "session.commands"
	// EventsExchange fans session lifecycle events out to every listener
	EventsExchange = "session.events"
	// ProgressExchange fans campaign progress out to every listener
	ProgressExchange = "campaign.progress"
	// DirectReplyTo is the RabbitMQ pseudo-queue used for send receipts
	DirectReplyTo = "amq.rabbitmq.reply-to"
)

// Message types set on the Type property of published messages
const (
	TypeSessionEvent   = "session.event"
	TypeSessionCommand = "session.command"
	TypeOutboundJob    = "outbound.job"
	TypeSendReceipt    = "send.receipt"
	TypeProgress       = "campaign.progress"
	TypeResult         = "campaign.result"
)

// DeclareTopology declares the exchanges and durable queues used by the
// bridge and the gateway. Declarations are idempotent.
func DeclareTopology(ch *amqp.Channel) error {
	for _, exchange := range []string{EventsExchange, ProgressExchange} {
		if err := ch.ExchangeDeclare(
			exchange,
			amqp.ExchangeFanout,
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	for _, queue := range []string{OutboundQueue, CommandQueue} {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}
	return nil
}

// declareListener declares a private, auto-deleted queue bound to a fanout exchange
func declareListener(ch *amqp.Channel, exchange string) (string, error) {
	q, err := ch.QueueDeclare(
		"",
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare listener queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind listener queue to %s: %w", exchange, err)
	}
	return q.Name, nil
}
