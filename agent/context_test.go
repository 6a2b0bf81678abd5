package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/feedback"
)

func TestEnsureBuildsPromptWithSnapshot(t *testing.T) {
	provider := &fakeProvider{events: []*calendar.Event{
		{ID: "ev-1", Title: "Dentist", Start: "2025-06-01T10:00:00Z", End: "2025-06-01T11:00:00Z"},
	}}
	ledger := feedback.NewLedger(filepath.Join(t.TempDir(), "feedback_log.jsonl"))
	system := NewSystemContext(provider, ledger)

	prompt, err := system.Ensure(context.Background())
	require.NoError(t, err)

	assert.Contains(t, prompt, "System Time Context: The current date and time is")
	assert.Contains(t, prompt, "personal assistant")
	assert.Contains(t, prompt, "Here are the calendar event details:")
	assert.Contains(t, prompt, "Event: Dentist")
	assert.NotContains(t, prompt, "Double-check confirmations!")
}

func TestEnsureEmptyCalendar(t *testing.T) {
	ledger := feedback.NewLedger(filepath.Join(t.TempDir(), "feedback_log.jsonl"))
	system := NewSystemContext(&fakeProvider{}, ledger)

	prompt, err := system.Ensure(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prompt, "No upcoming events found.")
}

func TestEnsureWarnsOnNegativeFeedback(t *testing.T) {
	ledger := feedback.NewLedger(filepath.Join(t.TempDir(), "feedback_log.jsonl"))
	require.NoError(t, ledger.Record("create_calendar_event", feedback.ResultUserFeedback, "no", ""))
	require.NoError(t, ledger.Record("create_calendar_event", feedback.ResultUserFeedback, "nope", ""))
	require.NoError(t, ledger.Record("create_calendar_event", feedback.ResultUserFeedback, "yes", ""))

	system := NewSystemContext(&fakeProvider{}, ledger)
	prompt, err := system.Ensure(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prompt, "⚠️ Note: Users have reported some issues recently. Double-check confirmations!")
}

func TestEnsureRefreshesWhenStale(t *testing.T) {
	provider := &fakeProvider{}
	ledger := feedback.NewLedger(filepath.Join(t.TempDir(), "feedback_log.jsonl"))
	system := NewSystemContext(provider, ledger)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	system.now = func() time.Time { return current }

	_, err := system.Ensure(context.Background())
	require.NoError(t, err)

	// Within the staleness horizon the snapshot is reused even though
	// the calendar changed underneath.
	provider.events = append(provider.events, &calendar.Event{
		ID: "ev-1", Title: "Dentist", Start: "2025-06-01T15:00:00Z",
	})
	current = current.Add(5 * time.Minute)
	prompt, err := system.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, prompt, "Event: Dentist")

	// Past the horizon it is rebuilt.
	current = current.Add(6 * time.Minute)
	prompt, err = system.Ensure(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prompt, "Event: Dentist")
}

func TestRefreshIsUnconditional(t *testing.T) {
	provider := &fakeProvider{}
	ledger := feedback.NewLedger(filepath.Join(t.TempDir(), "feedback_log.jsonl"))
	system := NewSystemContext(provider, ledger)

	_, err := system.Ensure(context.Background())
	require.NoError(t, err)

	provider.events = append(provider.events, &calendar.Event{
		ID: "ev-1", Title: "Dentist", Start: "2025-06-01T15:00:00Z",
	})
	require.NoError(t, system.Refresh(context.Background()))

	prompt, err := system.Ensure(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prompt, "Event: Dentist")
}
