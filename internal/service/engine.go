package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
)

// Transport is the single messaging session the engine sends through.
// Send blocks until the message is accepted or rejected.
type Transport interface {
	Ready() bool
	Send(ctx context.Context, address, body string) error
}

// Sleeper pauses the campaign between rows
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

// Sleep waits for d or until ctx is done
func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Engine drives a send campaign: one row at a time, with a fixed pause
// between rows and a progress notification around every send
type Engine struct {
	transport     Transport
	templateSvc   *TemplateService
	addressSuffix string
	sleeper       Sleeper
	log           *zap.Logger
}

// NewEngine creates a campaign engine
func NewEngine(transport Transport, templateSvc *TemplateService, addressSuffix string, log *zap.Logger) *Engine {
	if templateSvc == nil {
		templateSvc = NewTemplateService("")
	}
	return &Engine{
		transport:     transport,
		templateSvc:   templateSvc,
		addressSuffix: addressSuffix,
		sleeper:       timerSleeper{},
		log:           logger.OrNop(log),
	}
}

// WithSleeper replaces the pause implementation (used by tests)
func (e *Engine) WithSleeper(sleeper Sleeper) *Engine {
	e.sleeper = sleeper
	return e
}

// Run sends the campaign described by cfg and returns its result.
//
// Individual send failures never make Run fail; they are recorded as failed
// outcomes. Run only returns an error when the transport is not usable, and
// then before touching any row. When ctx is cancelled the row in flight is
// finished, the remaining rows are recorded as cancelled and the result is
// returned with Cancelled set.
func (e *Engine) Run(ctx context.Context, cfg *models.CampaignConfig, sink ProgressSink) (*models.CampaignResult, error) {
	if e.transport == nil || !e.transport.Ready() {
		return nil, fmt.Errorf("cannot start campaign: %w", ErrTransportNotReady)
	}
	if sink == nil {
		sink = MultiSink{}
	}

	delay := cfg.Delay()
	if delay < 0 {
		e.log.Warn("negative delay clamped to zero", zap.Int("delay_seconds", cfg.DelaySeconds))
		delay = 0
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	total := len(cfg.Rows)
	result := models.NewCampaignResult(id, total)

	e.log.Info("campaign started",
		zap.String("campaign_id", result.ID),
		zap.Int("rows", total),
		zap.String("target_column", cfg.TargetColumn),
		zap.Duration("delay", delay),
	)

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			e.cancelRemaining(result, cfg, i)
			break
		}

		e.processRow(ctx, cfg, i, sink, result)

		if i < total-1 && delay > 0 {
			if err := e.sleeper.Sleep(ctx, delay); err != nil {
				e.cancelRemaining(result, cfg, i+1)
				break
			}
		}
	}

	result.FinishedAt = time.Now().UTC()
	return result, nil
}

// processRow validates, renders and sends row i, recording exactly one outcome
func (e *Engine) processRow(ctx context.Context, cfg *models.CampaignConfig, i int, sink ProgressSink, result *models.CampaignResult) {
	total := len(cfg.Rows)
	row := cfg.Rows[i]

	if !IsEligible(row, cfg.TargetColumn) {
		e.log.Debug("row skipped: no destination", zap.Int("row", i))
		result.RecordFailure(i, models.UnknownIdentifier, models.ReasonNoPhoneNumber)
		sink.OnProgress(models.ProgressNotification{
			Current:    i + 1,
			Total:      total,
			Identifier: models.UnknownIdentifier,
			Status:     models.ProgressFailed,
			Error:      models.ReasonNoPhoneNumber,
		})
		return
	}

	cell, _ := row.Get(cfg.TargetColumn)
	body := e.templateSvc.Render(cfg.Template, row)
	identifier := DisplayIdentifier(cell)
	address := NormalizeIdentifier(cell, e.addressSuffix)

	sink.OnProgress(models.ProgressNotification{
		Current:    i + 1,
		Total:      total,
		Identifier: identifier,
		Status:     models.ProgressSending,
	})

	// A send in flight always completes, even if the campaign is cancelled meanwhile.
	err := e.transport.Send(context.WithoutCancel(ctx), address, body)
	if err != nil {
		e.log.Warn("send failed",
			zap.Int("row", i),
			zap.String("address", logger.MaskAddress(address)),
			zap.Error(err),
		)
		result.RecordFailure(i, identifier, err.Error())
		sink.OnProgress(models.ProgressNotification{
			Current:    i + 1,
			Total:      total,
			Identifier: identifier,
			Status:     models.ProgressFailed,
			Error:      err.Error(),
		})
		return
	}

	e.log.Debug("message sent", zap.Int("row", i), zap.String("address", logger.MaskAddress(address)))
	result.RecordSuccess(i, identifier)
	sink.OnProgress(models.ProgressNotification{
		Current:    i + 1,
		Total:      total,
		Identifier: identifier,
		Status:     models.ProgressSuccess,
	})
}

// cancelRemaining records rows from..end as failed so the counts stay whole
func (e *Engine) cancelRemaining(result *models.CampaignResult, cfg *models.CampaignConfig, from int) {
	result.Cancelled = true
	for i := from; i < len(cfg.Rows); i++ {
		identifier := models.UnknownIdentifier
		if cell, ok := cfg.Rows[i].Get(cfg.TargetColumn); ok && IsEligible(cfg.Rows[i], cfg.TargetColumn) {
			identifier = DisplayIdentifier(cell)
		}
		result.RecordFailure(i, identifier, models.ReasonCancelled)
	}
	e.log.Info("campaign cancelled",
		zap.String("campaign_id", result.ID),
		zap.Int("skipped_rows", len(cfg.Rows)-from),
	)
}
