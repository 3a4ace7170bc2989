package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
)

// ProgressPublisher broadcasts campaign progress and results on ProgressExchange
type ProgressPublisher struct {
	publisher MessagePublisher
	timeout   time.Duration
	log       *zap.Logger
}

// NewProgressPublisher creates a progress publisher and declares its exchange
func NewProgressPublisher(conn *Connection, log *zap.Logger) (*ProgressPublisher, error) {
	publisher, err := NewPublisher(conn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}
	return newProgressPublisher(publisher, log), nil
}

func newProgressPublisher(publisher MessagePublisher, log *zap.Logger) *ProgressPublisher {
	return &ProgressPublisher{
		publisher: publisher,
		timeout:   5 * time.Second,
		log:       logger.OrNop(log),
	}
}

// OnProgress publishes one notification. Failures are logged and never stop the campaign.
func (p *ProgressPublisher) OnProgress(n models.ProgressNotification) {
	p.publish(TypeProgress, n)
}

// OnResult publishes the final campaign result
func (p *ProgressPublisher) OnResult(result *models.CampaignResult) {
	p.publish(TypeResult, result)
}

func (p *ProgressPublisher) publish(messageType string, v interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.publisher.PublishJSON(ctx, ProgressExchange, "", v, WithType(messageType)); err != nil {
		p.log.Warn("failed to publish campaign progress", zap.String("type", messageType), zap.Error(err))
	}
}
