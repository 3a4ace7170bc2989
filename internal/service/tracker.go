package service

import (
	"sync"
	"time"

	"bulksender/internal/models"
)

// CampaignSnapshot is the observable state of the current or last campaign
type CampaignSnapshot struct {
	ID        string                        `json:"id"`
	Running   bool                          `json:"running"`
	Total     int                           `json:"total"`
	Processed int                           `json:"processed"`
	StartedAt time.Time                     `json:"started_at"`
	Progress  []models.ProgressNotification `json:"progress"`
	Result    *models.CampaignResult        `json:"result,omitempty"`
	Error     string                        `json:"error,omitempty"`
}

// CampaignTracker keeps the progress of the most recent campaign in memory
// so it can be polled. Starting a campaign discards the previous one.
type CampaignTracker struct {
	mu      sync.RWMutex
	current *CampaignSnapshot
}

// NewCampaignTracker creates an empty tracker
func NewCampaignTracker() *CampaignTracker {
	return &CampaignTracker{}
}

// Begin resets the tracker for a new campaign
func (t *CampaignTracker) Begin(id string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = &CampaignSnapshot{
		ID:        id,
		Running:   true,
		Total:     total,
		StartedAt: time.Now().UTC(),
		Progress:  make([]models.ProgressNotification, 0, total*2),
	}
}

// OnProgress appends a notification
func (t *CampaignTracker) OnProgress(n models.ProgressNotification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return
	}
	t.current.Progress = append(t.current.Progress, n)
	if n.IsTerminal() {
		t.current.Processed = n.Current
	}
}

// OnResult stores the final result and marks the campaign finished
func (t *CampaignTracker) OnResult(result *models.CampaignResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return
	}
	t.current.Result = result
	t.current.Running = false
}

// Fail marks the campaign finished with a fatal error
func (t *CampaignTracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return
	}
	t.current.Error = err.Error()
	t.current.Running = false
}

// Snapshot returns a copy of the tracked campaign, or false when there is none
func (t *CampaignTracker) Snapshot() (CampaignSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return CampaignSnapshot{}, false
	}
	snapshot := *t.current
	snapshot.Progress = append([]models.ProgressNotification(nil), t.current.Progress...)
	return snapshot, true
}
