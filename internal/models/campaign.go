package models

import (
	"fmt"
	"time"
)

// ProgressStatus represents the lifecycle status reported for a row
type ProgressStatus string

const (
	ProgressSending ProgressStatus = "sending"
	ProgressSuccess ProgressStatus = "success"
	ProgressFailed  ProgressStatus = "failed"
)

// OutcomeStatus represents the terminal status of a row
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Fixed texts reported for rows without a usable destination
const (
	UnknownIdentifier   = "N/A"
	ReasonNoPhoneNumber = "No phone number"
	ReasonCancelled     = "Campaign cancelled"
)

// CampaignConfig is the input of a single campaign run.
// ID is optional; the engine generates one when it is empty.
type CampaignConfig struct {
	ID           string `json:"id,omitempty"`
	Rows         []Row  `json:"rows"`
	TargetColumn string `json:"target_column"`
	Template     string `json:"template"`
	DelaySeconds int    `json:"delay_seconds"`
}

// Validate checks the fields an operator must provide.
// The delay is not checked here; see CampaignService for the allowed range.
func (c *CampaignConfig) Validate() error {
	if c.TargetColumn == "" {
		return fmt.Errorf("target column is required")
	}
	if c.Template == "" {
		return fmt.Errorf("template is required")
	}
	if len(c.Rows) == 0 {
		return fmt.Errorf("at least one row is required")
	}
	return nil
}

// Delay returns the configured pause between rows
func (c *CampaignConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}

// ProgressNotification is emitted by the engine while a campaign runs
type ProgressNotification struct {
	Current    int            `json:"current"`
	Total      int            `json:"total"`
	Identifier string         `json:"identifier"`
	Status     ProgressStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// IsTerminal reports whether the notification closes a row
func (p ProgressNotification) IsTerminal() bool {
	return p.Status == ProgressSuccess || p.Status == ProgressFailed
}

// RowOutcome records what happened to one row
type RowOutcome struct {
	Index      int           `json:"index"`
	Identifier string        `json:"identifier"`
	Status     OutcomeStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
}

// CampaignResult summarizes a finished campaign run
type CampaignResult struct {
	ID         string       `json:"id"`
	Total      int          `json:"total"`
	Success    int          `json:"success"`
	Failed     int          `json:"failed"`
	Outcomes   []RowOutcome `json:"outcomes"`
	Cancelled  bool         `json:"cancelled"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// NewCampaignResult creates an empty result sized for total rows
func NewCampaignResult(id string, total int) *CampaignResult {
	return &CampaignResult{
		ID:        id,
		Total:     total,
		Outcomes:  make([]RowOutcome, 0, total),
		StartedAt: time.Now().UTC(),
	}
}

// RecordSuccess appends a successful outcome
func (r *CampaignResult) RecordSuccess(index int, identifier string) {
	r.Success++
	r.Outcomes = append(r.Outcomes, RowOutcome{
		Index:      index,
		Identifier: identifier,
		Status:     OutcomeSuccess,
	})
}

// RecordFailure appends a failed outcome
func (r *CampaignResult) RecordFailure(index int, identifier, reason string) {
	r.Failed++
	r.Outcomes = append(r.Outcomes, RowOutcome{
		Index:      index,
		Identifier: identifier,
		Status:     OutcomeFailed,
		Error:      reason,
	})
}

// Consistent reports whether the counts agree with the outcomes
func (r *CampaignResult) Consistent() bool {
	return r.Success+r.Failed == r.Total && r.Total == len(r.Outcomes)
}
