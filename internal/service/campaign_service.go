package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bulksender/internal/logger"
	"bulksender/internal/models"
)

// RowLoader materializes the rows of a stored contact list
type RowLoader interface {
	LoadRows(ctx context.Context, table, orderBy string) ([]models.Row, error)
}

// CampaignService handles campaign business logic
type CampaignService struct {
	sessions      *SessionService
	templateSvc   *TemplateService
	rowLoader     RowLoader
	sinks         []ProgressSink
	tracker       *CampaignTracker
	addressSuffix string
	defaultDelay  int
	maxDelay      int
	sleeper       Sleeper
	log           *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// CampaignOptions holds the campaign settings that come from configuration
type CampaignOptions struct {
	AddressSuffix       string
	DefaultDelaySeconds int
	MaxDelaySeconds     int
}

// NewCampaignService creates a new campaign service.
// rowLoader may be nil when no database is configured. Every sink receives
// the progress of every campaign, in addition to the tracker.
func NewCampaignService(
	sessions *SessionService,
	templateSvc *TemplateService,
	rowLoader RowLoader,
	tracker *CampaignTracker,
	opts CampaignOptions,
	log *zap.Logger,
	sinks ...ProgressSink,
) *CampaignService {
	if tracker == nil {
		tracker = NewCampaignTracker()
	}
	return &CampaignService{
		sessions:      sessions,
		templateSvc:   templateSvc,
		rowLoader:     rowLoader,
		sinks:         sinks,
		tracker:       tracker,
		addressSuffix: opts.AddressSuffix,
		defaultDelay:  opts.DefaultDelaySeconds,
		maxDelay:      opts.MaxDelaySeconds,
		sleeper:       timerSleeper{},
		log:           logger.OrNop(log),
	}
}

// WithSleeper replaces the pause used between rows (used by tests)
func (s *CampaignService) WithSleeper(sleeper Sleeper) *CampaignService {
	s.sleeper = sleeper
	return s
}

// BuildConfig turns a send request into a validated campaign configuration
func (s *CampaignService) BuildConfig(ctx context.Context, req *SendCampaignRequest) (*models.CampaignConfig, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	delay := s.defaultDelay
	if req.DelaySeconds != nil {
		delay = *req.DelaySeconds
	}

	var rows []models.Row
	if req.Source != nil {
		if s.rowLoader == nil {
			return nil, &UnavailableError{Dependency: "database", Err: fmt.Errorf("no database configured")}
		}
		loaded, err := s.rowLoader.LoadRows(ctx, req.Source.Table, req.Source.OrderBy)
		if err != nil {
			return nil, fmt.Errorf("failed to load rows: %w", err)
		}
		rows = loaded
	} else {
		rows = make([]models.Row, len(req.Rows))
		for i, values := range req.Rows {
			rows[i] = models.NewRow(i, values)
		}
	}

	cfg := &models.CampaignConfig{
		Rows:         rows,
		TargetColumn: req.TargetColumn,
		Template:     req.Template,
		DelaySeconds: delay,
	}
	if err := s.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig checks a campaign before it is started
func (s *CampaignService) ValidateConfig(cfg *models.CampaignConfig) error {
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if cfg.DelaySeconds < 0 || (s.maxDelay > 0 && cfg.DelaySeconds > s.maxDelay) {
		return &ValidationError{Message: fmt.Sprintf("delay_seconds must be between 0 and %d", s.maxDelay)}
	}
	return nil
}

// StartCampaign launches a campaign in the background and returns its id.
// Progress is available from CurrentCampaign.
func (s *CampaignService) StartCampaign(ctx context.Context, cfg *models.CampaignConfig) (*SendCampaignResult, error) {
	if err := s.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	// The campaign outlives the request that started it.
	run, err := s.begin(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		if _, err := run(); err != nil {
			s.log.Error("campaign failed to start", zap.String("campaign_id", cfg.ID), zap.Error(err))
		}
	}()

	return &SendCampaignResult{
		CampaignID: cfg.ID,
		Total:      len(cfg.Rows),
		Status:     "sending",
	}, nil
}

// RunCampaign runs a campaign to completion. Extra sinks receive its progress.
func (s *CampaignService) RunCampaign(ctx context.Context, cfg *models.CampaignConfig, extra ...ProgressSink) (*models.CampaignResult, error) {
	if err := s.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	run, err := s.begin(ctx, cfg, extra...)
	if err != nil {
		return nil, err
	}
	return run()
}

// begin reserves the session and returns the function that runs the campaign.
// Only one campaign runs at a time.
func (s *CampaignService) begin(ctx context.Context, cfg *models.CampaignConfig, extra ...ProgressSink) (func() (*models.CampaignResult, error), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, &ConflictError{Resource: "campaign", Message: ErrCampaignRunning.Error()}
	}

	lease, err := s.sessions.Acquire()
	if err != nil {
		return nil, err
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done
	s.tracker.Begin(cfg.ID, len(cfg.Rows))

	sink := MultiSink{s.tracker}
	sink = append(sink, s.sinks...)
	sink = append(sink, extra...)

	// The caller's cancellation still stops the campaign between rows.
	stop := context.AfterFunc(ctx, cancel)

	return func() (*models.CampaignResult, error) {
		defer func() {
			stop()
			cancel()
			lease.Release()
			s.mu.Lock()
			s.running = false
			s.cancel = nil
			s.mu.Unlock()
			close(done)
		}()

		engine := NewEngine(lease, s.templateSvc, s.addressSuffix, s.log.Named("engine")).WithSleeper(s.sleeper)
		result, err := engine.Run(runCtx, cfg, sink)
		if err != nil {
			s.tracker.Fail(err)
			return nil, &UnavailableError{Dependency: "session", Err: err}
		}

		sink.OnResult(result)
		return result, nil
	}, nil
}

// CancelCampaign asks the running campaign to stop after the row in flight
func (s *CampaignService) CancelCampaign() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cancel == nil {
		return &BusinessLogicError{Message: "no campaign is running"}
	}
	s.cancel()
	return nil
}

// Wait blocks until the running campaign, if any, has finished
func (s *CampaignService) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentCampaign returns the progress of the current or last campaign
func (s *CampaignService) CurrentCampaign() (*CampaignSnapshot, error) {
	snapshot, ok := s.tracker.Snapshot()
	if !ok {
		return nil, &NotFoundError{Resource: "campaign", ID: "current"}
	}
	return &snapshot, nil
}

// PreviewMessage renders a template against one row without sending anything
func (s *CampaignService) PreviewMessage(req *PreviewMessageRequest) (*PreviewMessageResult, error) {
	if req.Template == "" {
		return nil, &ValidationError{Message: "template is required"}
	}

	row := models.NewRow(0, req.Row)
	result := &PreviewMessageResult{
		RenderedMessage:       s.templateSvc.Preview(req.Template, row),
		UnmatchedPlaceholders: s.templateSvc.UnmatchedPlaceholders(req.Template, row.Columns()),
	}

	if req.TargetColumn != "" {
		result.Eligible = IsEligible(row, req.TargetColumn)
		if result.Eligible {
			cell, _ := row.Get(req.TargetColumn)
			result.Address = NormalizeIdentifier(cell, s.addressSuffix)
		}
	}
	return result, nil
}

// Request/Response types

// SendCampaignRequest represents a request to send a campaign
type SendCampaignRequest struct {
	TargetColumn string                   `json:"target_column"`
	Template     string                   `json:"template"`
	DelaySeconds *int                     `json:"delay_seconds,omitempty"`
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	Source       *RowSourceRequest        `json:"source,omitempty"`
}

// RowSourceRequest selects a stored contact table as the campaign rows
type RowSourceRequest struct {
	Table   string `json:"table"`
	OrderBy string `json:"order_by,omitempty"`
}

// Validate validates the send campaign request
func (r *SendCampaignRequest) Validate() error {
	if r.TargetColumn == "" {
		return fmt.Errorf("target_column is required")
	}
	if r.Template == "" {
		return fmt.Errorf("template is required")
	}
	if r.Source != nil && len(r.Rows) > 0 {
		return fmt.Errorf("rows and source are mutually exclusive")
	}
	if r.Source != nil && r.Source.Table == "" {
		return fmt.Errorf("source.table is required")
	}
	if r.Source == nil && len(r.Rows) == 0 {
		return fmt.Errorf("rows or source is required")
	}
	return nil
}

// SendCampaignResult represents the result of starting a campaign
type SendCampaignResult struct {
	CampaignID string `json:"campaign_id"`
	Total      int    `json:"total"`
	Status     string `json:"status"`
}

// PreviewMessageRequest represents a request to preview a message
type PreviewMessageRequest struct {
	Template     string                 `json:"template"`
	TargetColumn string                 `json:"target_column,omitempty"`
	Row          map[string]interface{} `json:"row"`
}

// PreviewMessageResult represents the result of previewing a message
type PreviewMessageResult struct {
	RenderedMessage       string   `json:"rendered_message"`
	UnmatchedPlaceholders []string `json:"unmatched_placeholders"`
	Eligible              bool     `json:"eligible"`
	Address               string   `json:"address,omitempty"`
}
