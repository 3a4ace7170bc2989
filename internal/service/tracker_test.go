package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulksender/internal/models"
)

func TestCampaignTracker(t *testing.T) {
	tracker := NewCampaignTracker()

	_, ok := tracker.Snapshot()
	assert.False(t, ok, "empty tracker has no campaign")

	// Notifications before Begin are ignored
	tracker.OnProgress(models.ProgressNotification{Current: 1, Total: 1, Status: models.ProgressSuccess})

	tracker.Begin("c1", 2)
	tracker.OnProgress(models.ProgressNotification{Current: 1, Total: 2, Identifier: "1", Status: models.ProgressSending})

	snapshot, ok := tracker.Snapshot()
	require.True(t, ok)
	assert.True(t, snapshot.Running)
	assert.Equal(t, 0, snapshot.Processed, "sending is not terminal")

	tracker.OnProgress(models.ProgressNotification{Current: 1, Total: 2, Identifier: "1", Status: models.ProgressSuccess})
	tracker.OnProgress(models.ProgressNotification{Current: 2, Total: 2, Identifier: models.UnknownIdentifier, Status: models.ProgressFailed})

	result := models.NewCampaignResult("c1", 2)
	tracker.OnResult(result)

	snapshot, ok = tracker.Snapshot()
	require.True(t, ok)
	assert.False(t, snapshot.Running)
	assert.Equal(t, 2, snapshot.Processed)
	assert.Len(t, snapshot.Progress, 3)
	assert.Same(t, result, snapshot.Result)
}

func TestCampaignTracker_SnapshotIsACopy(t *testing.T) {
	tracker := NewCampaignTracker()
	tracker.Begin("c1", 1)
	tracker.OnProgress(models.ProgressNotification{Current: 1, Total: 1, Status: models.ProgressSending})

	snapshot, _ := tracker.Snapshot()
	snapshot.Progress[0].Identifier = "changed"

	again, _ := tracker.Snapshot()
	assert.Empty(t, again.Progress[0].Identifier)
}

func TestCampaignTracker_BeginDiscardsPrevious(t *testing.T) {
	tracker := NewCampaignTracker()
	tracker.Begin("c1", 1)
	tracker.Fail(errors.New("boom"))

	snapshot, _ := tracker.Snapshot()
	assert.False(t, snapshot.Running)
	assert.Equal(t, "boom", snapshot.Error)

	tracker.Begin("c2", 3)
	snapshot, _ = tracker.Snapshot()
	assert.Equal(t, "c2", snapshot.ID)
	assert.Empty(t, snapshot.Error)
	assert.Empty(t, snapshot.Progress)
	assert.Equal(t, 3, snapshot.Total)
}
