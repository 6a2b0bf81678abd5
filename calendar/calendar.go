// Package calendar defines the event model and the provider interface
// shared by the agent, the ingestion pipeline, and the concrete
// Google/local provider implementations.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Attendee response statuses, following the provider vocabulary.
const (
	ResponseAccepted  = "accepted"
	ResponseDeclined  = "declined"
	ResponseTentative = "tentative"
)

// Attendee is a participant of an event.
type Attendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"response_status,omitempty"`
	Self           bool   `json:"self,omitempty"`
}

// Event is a calendar event. Identity is provider-assigned; this system
// never invents IDs, only looks events up by title and date window.
// Start and End are RFC3339 timestamps, or bare dates for all-day events,
// kept as strings because matching is done on date prefixes.
type Event struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// LookaheadDays is the forward horizon for all event lookups.
const LookaheadDays = 90

// ForwardWindow returns the standard lookup window starting at now.
func ForwardWindow(now time.Time) Window {
	return Window{From: now, To: now.AddDate(0, 0, LookaheadDays)}
}

// Provider is the calendar backend. Query, when non-empty, restricts
// List to events whose text matches it (substring, case-insensitive).
type Provider interface {
	List(ctx context.Context, w Window, query string) ([]*Event, error)
	Insert(ctx context.Context, event *Event) (*Event, error)
	Update(ctx context.Context, id string, event *Event) (*Event, error)
	PatchAttendees(ctx context.Context, id string, attendees []Attendee) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// NoUpcomingEvents is the snapshot text for an empty calendar.
const NoUpcomingEvents = "No upcoming events found."

// Render renders events into the flat text snapshot used for prompt
// construction and change verification.
func Render(events []*Event) string {
	if len(events) == 0 {
		return NoUpcomingEvents
	}

	var b strings.Builder
	for _, e := range events {
		title := e.Title
		if title == "" {
			title = "No title"
		}
		location := e.Location
		if location == "" {
			location = "None"
		}
		description := e.Description
		if description == "" {
			description = "None"
		}
		fmt.Fprintf(&b, "Event: %s\nStart: %s\nEnd: %s\nLocation: %s\nDescription: %s\n---\n",
			title, e.Start, e.End, location, description)
	}
	return b.String()
}

// SortByStart orders events by start time ascending, so that
// "first match" lookups are deterministic.
func SortByStart(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start < events[j].Start
	})
}

// DatePrefix returns the calendar-date portion (first 10 characters)
// of an RFC3339 timestamp, used for approximate date matching.
func DatePrefix(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}

// MatchesTitle reports whether the event title contains the query,
// case-insensitive.
func MatchesTitle(e *Event, query string) bool {
	return strings.Contains(strings.ToLower(e.Title), strings.ToLower(query))
}
