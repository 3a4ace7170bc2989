package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bulksender/internal/models"
	"bulksender/internal/transport"
)

func TestDispatchEvent(t *testing.T) {
	handler := &recordingHandler{}

	for _, event := range []models.SessionEvent{
		{Type: models.EventQRCode, Data: "code-1"},
		{Type: models.EventAuthenticated},
		{Type: models.EventReady},
		{Type: models.EventAuthFailure, Data: "rejected"},
		{Type: models.EventDisconnected, Data: "logged out"},
		{Type: "unknown"},
	} {
		DispatchEvent(event, handler)
	}

	assert.Equal(t, []string{
		"qr:code-1",
		"authenticated",
		"ready",
		"auth_failure:rejected",
		"disconnected:logged out",
	}, handler.Events())
}

func TestPublishOptions(t *testing.T) {
	var msg amqp.Publishing
	for _, opt := range []PublishOption{
		WithReplyTo(DirectReplyTo, "corr-1"),
		WithType(TypeOutboundJob),
		Persistent(),
	} {
		opt(&msg)
	}

	assert.Equal(t, DirectReplyTo, msg.ReplyTo)
	assert.Equal(t, "corr-1", msg.CorrelationId)
	assert.Equal(t, TypeOutboundJob, msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	WithCorrelationID("corr-2")(&msg)
	assert.Equal(t, "corr-2", msg.CorrelationId)

	WithExpiration(1500 * time.Millisecond)(&msg)
	assert.Equal(t, "1500", msg.Expiration)

	var unbounded amqp.Publishing
	WithExpiration(0)(&unbounded)
	assert.Empty(t, unbounded.Expiration)
}

func TestConstructorsRequireConnection(t *testing.T) {
	_, err := NewPublisher(nil)
	assert.Error(t, err)

	_, err = NewBridgeClient(nil, time.Second, nil)
	assert.Error(t, err)

	_, err = NewGateway(nil, nil, time.Second, nil)
	assert.Error(t, err)

	_, err = NewConsumer(nil, OutboundQueue, func(amqp.Delivery) error { return nil }, ConsumerOptions{}, nil)
	assert.Error(t, err)

	_, err = NewConsumer(&Connection{}, "", func(amqp.Delivery) error { return nil }, ConsumerOptions{}, nil)
	assert.Error(t, err)

	_, err = NewConsumer(&Connection{}, OutboundQueue, nil, ConsumerOptions{}, nil)
	assert.Error(t, err)
}

func TestConsumer_Process(t *testing.T) {
	tests := []struct {
		name    string
		opts    ConsumerOptions
		failure error
		want    []string
	}{
		{"ack on success", ConsumerOptions{}, nil, []string{"ack:7"}},
		{"nack on failure", ConsumerOptions{}, errors.New("boom"), []string{"nack:7:false"}},
		{"requeue on failure", ConsumerOptions{Requeue: true}, errors.New("boom"), []string{"nack:7:true"}},
		{"auto ack never acks", ConsumerOptions{AutoAck: true}, errors.New("boom"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handled := 0
			c, err := NewConsumer(&Connection{}, OutboundQueue, func(amqp.Delivery) error {
				handled++
				return tt.failure
			}, tt.opts, nil)
			require.NoError(t, err)

			ack := &mockAcknowledger{}
			c.process(amqp.Delivery{Acknowledger: ack, DeliveryTag: 7})

			assert.Equal(t, 1, handled)
			assert.Equal(t, tt.want, ack.Calls)
		})
	}
}

func TestConsumer_StopWithoutStart(t *testing.T) {
	c, err := NewConsumer(&Connection{}, CommandQueue, func(amqp.Delivery) error { return nil }, ConsumerOptions{}, nil)
	require.NoError(t, err)

	assert.NoError(t, c.Stop())
	assert.NoError(t, c.Stop())
}

func newTestBridge() *BridgeClient {
	b, _ := NewBridgeClient(&Connection{}, time.Second, zap.NewNop())
	return b
}

func TestBridgeClient_HandleReceipt(t *testing.T) {
	b := newTestBridge()
	reply := make(chan models.SendReceipt, 1)
	b.pending["corr-1"] = reply

	body, _ := json.Marshal(models.SendReceipt{Error: "number not on network"})
	require.NoError(t, b.handleReceipt(amqp.Delivery{CorrelationId: "corr-1", Body: body}))

	receipt := <-reply
	assert.False(t, receipt.OK)
	assert.Equal(t, "number not on network", receipt.Error)

	// A duplicate or unknown receipt never blocks
	require.NoError(t, b.handleReceipt(amqp.Delivery{CorrelationId: "corr-1", Body: body}))
	require.NoError(t, b.handleReceipt(amqp.Delivery{CorrelationId: "corr-1", Body: body}))
	require.NoError(t, b.handleReceipt(amqp.Delivery{CorrelationId: "other", Body: body}))

	assert.Error(t, b.handleReceipt(amqp.Delivery{CorrelationId: "corr-1", Body: []byte("{")}))
}

func TestBridgeClient_HandleEvent(t *testing.T) {
	b := newTestBridge()
	handler := &recordingHandler{}
	b.events = handler

	body, _ := json.Marshal(models.SessionEvent{Type: models.EventQRCode, Data: "code-1"})
	require.NoError(t, b.handleEvent(amqp.Delivery{Body: body}))
	assert.Equal(t, []string{"qr:code-1"}, handler.Events())

	assert.Error(t, b.handleEvent(amqp.Delivery{Body: []byte("not json")}))
}

func TestBridgeClient_SendAfterClose(t *testing.T) {
	b := newTestBridge()

	require.NoError(t, b.Close(), "closing a bridge that never started publishes nothing")
	require.NoError(t, b.Close())

	err := b.Send(context.Background(), "1@c.us", "hi")
	assert.ErrorIs(t, err, transport.ErrNotConnected)
}

// answeringPublisher replies to every outbound job through the bridge's receipt handler
func answeringPublisher(b **BridgeClient, receipt models.SendReceipt) *mockPublisher {
	return &mockPublisher{
		PublishFunc: func(m publishedMessage) error {
			body, _ := json.Marshal(receipt)
			return (*b).handleReceipt(amqp.Delivery{CorrelationId: m.Msg.CorrelationId, Body: body})
		},
	}
}

func TestBridgeClient_Send(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		// Setup
		var b *BridgeClient
		publisher := answeringPublisher(&b, models.SendReceipt{OK: true})
		b = newBridgeClient(publisher, 2*time.Second, nil)

		// Execute
		err := b.Send(context.Background(), "254700000001@c.us", "Hello Ann")

		// Verify
		require.NoError(t, err)
		messages := publisher.Messages()
		require.Len(t, messages, 1)
		sent := messages[0]
		assert.Equal(t, "", sent.Exchange)
		assert.Equal(t, OutboundQueue, sent.RoutingKey)
		assert.Equal(t, DirectReplyTo, sent.Msg.ReplyTo)
		assert.NotEmpty(t, sent.Msg.CorrelationId)
		assert.Equal(t, TypeOutboundJob, sent.Msg.Type)
		assert.Equal(t, "2000", sent.Msg.Expiration, "the job expires with the wait for its receipt")
		assert.Equal(t, amqp.Persistent, sent.Msg.DeliveryMode)

		var job models.OutboundJob
		require.NoError(t, json.Unmarshal(sent.Msg.Body, &job))
		assert.Equal(t, models.OutboundJob{Address: "254700000001@c.us", Body: "Hello Ann"}, job)
		assert.Empty(t, b.pending, "the pending reply is forgotten once answered")
	})

	t.Run("rejected by gateway", func(t *testing.T) {
		var b *BridgeClient
		b = newBridgeClient(answeringPublisher(&b, models.SendReceipt{Error: "number not on network"}), time.Second, nil)

		err := b.Send(context.Background(), "1@c.us", "hi")

		require.Error(t, err)
		assert.Equal(t, "number not on network", err.Error())
	})

	t.Run("each send gets its own correlation id", func(t *testing.T) {
		var b *BridgeClient
		publisher := answeringPublisher(&b, models.SendReceipt{OK: true})
		b = newBridgeClient(publisher, time.Second, nil)

		require.NoError(t, b.Send(context.Background(), "1@c.us", "a"))
		require.NoError(t, b.Send(context.Background(), "2@c.us", "b"))

		messages := publisher.Messages()
		require.Len(t, messages, 2)
		assert.NotEqual(t, messages[0].Msg.CorrelationId, messages[1].Msg.CorrelationId)
	})

	t.Run("no receipt in time", func(t *testing.T) {
		publisher := &mockPublisher{}
		b := newBridgeClient(publisher, 20*time.Millisecond, nil)

		err := b.Send(context.Background(), "1@c.us", "hi")

		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "no receipt from gateway")
		assert.Equal(t, "20", publisher.Messages()[0].Msg.Expiration)
	})

	t.Run("publish fails", func(t *testing.T) {
		publisher := &mockPublisher{PublishFunc: func(publishedMessage) error { return errors.New("channel closed") }}
		b := newBridgeClient(publisher, time.Second, nil)

		err := b.Send(context.Background(), "1@c.us", "hi")

		assert.EqualError(t, err, "channel closed")
		assert.Empty(t, b.pending)
	})
}

func TestProgressPublisher(t *testing.T) {
	// Setup
	publisher := &mockPublisher{}
	progress := newProgressPublisher(publisher, nil)
	result := models.NewCampaignResult("campaign-1", 1)
	result.RecordSuccess(0, "254700000001")

	// Execute
	progress.OnProgress(models.ProgressNotification{Current: 1, Total: 1, Identifier: "254700000001", Status: models.ProgressSuccess})
	progress.OnResult(result)

	// Verify
	messages := publisher.Messages()
	require.Len(t, messages, 2)
	for _, m := range messages {
		assert.Equal(t, ProgressExchange, m.Exchange)
		assert.Equal(t, "", m.RoutingKey)
	}
	assert.Equal(t, TypeProgress, messages[0].Msg.Type)
	assert.Equal(t, TypeResult, messages[1].Msg.Type)

	var n models.ProgressNotification
	require.NoError(t, json.Unmarshal(messages[0].Msg.Body, &n))
	assert.Equal(t, "254700000001", n.Identifier)
	assert.Equal(t, models.ProgressSuccess, n.Status)

	var decoded models.CampaignResult
	require.NoError(t, json.Unmarshal(messages[1].Msg.Body, &decoded))
	assert.Equal(t, "campaign-1", decoded.ID)
	assert.Equal(t, 1, decoded.Success)
}

func TestProgressPublisher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	publisher := &mockPublisher{PublishFunc: func(publishedMessage) error { return errors.New("broker gone") }}
	progress := newProgressPublisher(publisher, zap.New(core))

	assert.NotPanics(t, func() {
		progress.OnProgress(models.ProgressNotification{Current: 1, Total: 1, Status: models.ProgressSending})
	})

	entries := logs.FilterMessage("failed to publish campaign progress").All()
	require.Len(t, entries, 1)
	assert.Equal(t, TypeProgress, entries[0].ContextMap()["type"])
}

func TestGateway_DropsMalformedMessages(t *testing.T) {
	g, err := NewGateway(&Connection{}, nil, time.Second, zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, g.handleCommand(amqp.Delivery{Body: []byte("{")}))
	assert.NoError(t, g.handleCommand(amqp.Delivery{Body: []byte(`{"command":"reboot"}`)}))
	assert.NoError(t, g.handleCommand(amqp.Delivery{Body: []byte(`{"command":"disconnect"}`)}))
	assert.NoError(t, g.handleJob(amqp.Delivery{Body: []byte("{")}))

	// Without a session and without a reply queue there is nobody to answer
	body, _ := json.Marshal(models.OutboundJob{Address: "1@c.us", Body: "hi"})
	assert.NoError(t, g.handleJob(amqp.Delivery{Body: body}))
}
