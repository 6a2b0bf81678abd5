package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/internal/profile"
	"github.com/hrygo/aide/store"
	"github.com/hrygo/aide/store/db/sqlite"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	p := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "aide_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = driver.Close()
	})
	require.NoError(t, driver.Migrate(context.Background()))
	return NewProvider(store.New(driver, p))
}

func TestInsertAssignsID(t *testing.T) {
	ctx := context.Background()
	provider := newTestProvider(t)

	created, err := provider.Insert(ctx, &calendar.Event{
		Title: "Dentist Appointment",
		Start: "2025-06-01T10:00:00Z",
		End:   "2025-06-01T11:00:00Z",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Dentist Appointment", created.Title)
}

func TestListWindowAndQuery(t *testing.T) {
	ctx := context.Background()
	provider := newTestProvider(t)

	for _, e := range []*calendar.Event{
		{Title: "Past Checkup", Start: "2025-01-01T10:00:00Z"},
		{Title: "Dentist Appointment", Start: "2025-06-01T10:00:00Z"},
		{Title: "Team Standup", Start: "2025-06-02T09:00:00Z"},
	} {
		_, err := provider.Insert(ctx, e)
		require.NoError(t, err)
	}

	w := calendar.Window{
		From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	events, err := provider.List(ctx, w, "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Dentist Appointment", events[0].Title)
	require.Equal(t, "Team Standup", events[1].Title)

	events, err = provider.List(ctx, w, "dentist")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Dentist Appointment", events[0].Title)
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	provider := newTestProvider(t)

	created, err := provider.Insert(ctx, &calendar.Event{
		Title:    "Dentist Appointment",
		Start:    "2025-06-01T10:00:00Z",
		End:      "2025-06-01T11:00:00Z",
		Location: "Clinic",
	})
	require.NoError(t, err)

	created.Start = "2025-06-03T10:00:00Z"
	created.End = "2025-06-03T11:00:00Z"
	updated, err := provider.Update(ctx, created.ID, created)
	require.NoError(t, err)
	require.Equal(t, "2025-06-03T10:00:00Z", updated.Start)
	require.Equal(t, "Clinic", updated.Location)
}

func TestPatchAttendees(t *testing.T) {
	ctx := context.Background()
	provider := newTestProvider(t)

	created, err := provider.Insert(ctx, &calendar.Event{
		Title: "Planning",
		Start: "2025-06-01T10:00:00Z",
		Attendees: []calendar.Attendee{
			{Email: "alice@example.com", ResponseStatus: "needsAction"},
		},
	})
	require.NoError(t, err)

	updated, err := provider.PatchAttendees(ctx, created.ID, []calendar.Attendee{
		{Email: "alice@example.com", ResponseStatus: calendar.ResponseAccepted, Self: true},
	})
	require.NoError(t, err)
	require.Len(t, updated.Attendees, 1)
	require.Equal(t, calendar.ResponseAccepted, updated.Attendees[0].ResponseStatus)
	require.True(t, updated.Attendees[0].Self)
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	provider := newTestProvider(t)

	created, err := provider.Insert(ctx, &calendar.Event{
		Title: "Dentist Appointment",
		Start: "2025-06-01T10:00:00Z",
	})
	require.NoError(t, err)
	require.NoError(t, provider.Delete(ctx, created.ID))

	events, err := provider.List(ctx, calendar.Window{}, "")
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestParseTs(t *testing.T) {
	require.Equal(t, int64(0), parseTs("not a timestamp"))
	require.NotZero(t, parseTs("2025-06-01T10:00:00Z"))
	require.NotZero(t, parseTs("2025-06-01"))
}
