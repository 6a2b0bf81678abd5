package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "No upcoming events found.", Render(nil))
	assert.Equal(t, "No upcoming events found.", Render([]*Event{}))
}

func TestRender(t *testing.T) {
	events := []*Event{
		{
			Title:       "Standup",
			Start:       "2025-01-01T09:00:00Z",
			End:         "2025-01-01T09:15:00Z",
			Location:    "Room 4",
			Description: "Daily sync",
		},
		{
			Start: "2025-01-02T10:00:00Z",
			End:   "2025-01-02T11:00:00Z",
		},
	}

	out := Render(events)
	assert.Contains(t, out, "Event: Standup\nStart: 2025-01-01T09:00:00Z\nEnd: 2025-01-01T09:15:00Z\nLocation: Room 4\nDescription: Daily sync\n---\n")
	// Missing fields fall back to placeholders.
	assert.Contains(t, out, "Event: No title")
	assert.Contains(t, out, "Location: None")
	assert.Contains(t, out, "Description: None")
}

func TestSortByStart(t *testing.T) {
	events := []*Event{
		{Title: "b", Start: "2025-03-01T09:00:00Z"},
		{Title: "a", Start: "2025-01-01T09:00:00Z"},
		{Title: "c", Start: "2025-02-01T09:00:00Z"},
	}
	SortByStart(events)
	assert.Equal(t, "a", events[0].Title)
	assert.Equal(t, "c", events[1].Title)
	assert.Equal(t, "b", events[2].Title)
}

func TestDatePrefix(t *testing.T) {
	assert.Equal(t, "2025-01-01", DatePrefix("2025-01-01T09:00:00Z"))
	assert.Equal(t, "2025-01-01", DatePrefix("2025-01-01"))
	assert.Equal(t, "2025", DatePrefix("2025"))
}

func TestForwardWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := ForwardWindow(now)
	assert.Equal(t, now, w.From)
	assert.Equal(t, now.AddDate(0, 0, 90), w.To)
}

func TestMatchesTitle(t *testing.T) {
	e := &Event{Title: "Team Standup"}
	assert.True(t, MatchesTitle(e, "standup"))
	assert.True(t, MatchesTitle(e, "Team"))
	assert.False(t, MatchesTitle(e, "lunch"))
}
