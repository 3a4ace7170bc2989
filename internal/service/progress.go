package service

import (
	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
)

// ProgressSink receives progress notifications in the order the engine emits them
type ProgressSink interface {
	OnProgress(notification models.ProgressNotification)
}

// ResultSink is implemented by sinks that also want the final campaign result
type ResultSink interface {
	OnResult(result *models.CampaignResult)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(notification models.ProgressNotification)

// OnProgress calls f
func (f ProgressFunc) OnProgress(notification models.ProgressNotification) {
	f(notification)
}

// MultiSink fans notifications out to several sinks, in order
type MultiSink []ProgressSink

// OnProgress forwards the notification to every sink
func (m MultiSink) OnProgress(notification models.ProgressNotification) {
	for _, sink := range m {
		if sink != nil {
			sink.OnProgress(notification)
		}
	}
}

// OnResult forwards the result to every sink that accepts results
func (m MultiSink) OnResult(result *models.CampaignResult) {
	for _, sink := range m {
		if rs, ok := sink.(ResultSink); ok {
			rs.OnResult(result)
		}
	}
}

// LogSink writes progress to a zap logger
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a sink that logs every notification
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: logger.OrNop(log)}
}

// OnProgress logs the notification; failures are logged at warn level
func (s *LogSink) OnProgress(n models.ProgressNotification) {
	fields := []zap.Field{
		zap.Int("current", n.Current),
		zap.Int("total", n.Total),
		zap.String("identifier", logger.MaskAddress(n.Identifier)),
		zap.String("status", string(n.Status)),
	}
	if n.Status == models.ProgressFailed {
		s.log.Warn("row failed", append(fields, zap.String("error", n.Error))...)
		return
	}
	s.log.Info("row progress", fields...)
}

// OnResult logs the campaign summary
func (s *LogSink) OnResult(result *models.CampaignResult) {
	s.log.Info("campaign finished",
		zap.String("campaign_id", result.ID),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
}
