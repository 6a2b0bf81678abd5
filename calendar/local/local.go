// Package local implements the calendar provider backed by the
// database store, for running without a Google account.
package local

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/store"
)

type Provider struct {
	store *store.Store
}

func NewProvider(s *store.Store) *Provider {
	return &Provider{store: s}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTs converts an event timestamp string into epoch seconds.
// Unparseable values sort first rather than failing the write.
func parseTs(value string) int64 {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Unix()
		}
	}
	return 0
}

func toRow(event *calendar.Event) (*store.Event, error) {
	attendees := event.Attendees
	if attendees == nil {
		attendees = []calendar.Attendee{}
	}
	raw, err := json.Marshal(attendees)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal attendees")
	}
	return &store.Event{
		UID:         event.ID,
		Title:       event.Title,
		Start:       event.Start,
		End:         event.End,
		StartTs:     parseTs(event.Start),
		EndTs:       parseTs(event.End),
		Location:    event.Location,
		Description: event.Description,
		Attendees:   string(raw),
	}, nil
}

func fromRow(row *store.Event) (*calendar.Event, error) {
	event := &calendar.Event{
		ID:          row.UID,
		Title:       row.Title,
		Start:       row.Start,
		End:         row.End,
		Location:    row.Location,
		Description: row.Description,
	}
	if row.Attendees != "" {
		if err := json.Unmarshal([]byte(row.Attendees), &event.Attendees); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal attendees for event %s", row.UID)
		}
	}
	return event, nil
}

func (p *Provider) List(ctx context.Context, w calendar.Window, query string) ([]*calendar.Event, error) {
	find := &store.FindEvent{}
	if !w.From.IsZero() {
		from := w.From.Unix()
		find.StartGE = &from
	}
	if !w.To.IsZero() {
		to := w.To.Unix()
		find.StartLT = &to
	}
	if query != "" {
		find.Query = &query
	}

	rows, err := p.store.ListEvents(ctx, find)
	if err != nil {
		return nil, err
	}

	events := make([]*calendar.Event, 0, len(rows))
	for _, row := range rows {
		event, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	calendar.SortByStart(events)
	return events, nil
}

func (p *Provider) Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	if event.ID == "" {
		event.ID = shortuuid.New()
	}
	row, err := toRow(event)
	if err != nil {
		return nil, err
	}
	created, err := p.store.CreateEvent(ctx, row)
	if err != nil {
		return nil, err
	}
	return fromRow(created)
}

func (p *Provider) Update(ctx context.Context, id string, event *calendar.Event) (*calendar.Event, error) {
	row, err := toRow(event)
	if err != nil {
		return nil, err
	}
	startTs, endTs := parseTs(event.Start), parseTs(event.End)
	updated, err := p.store.UpdateEvent(ctx, &store.UpdateEvent{
		UID:         id,
		Title:       &row.Title,
		Start:       &row.Start,
		End:         &row.End,
		StartTs:     &startTs,
		EndTs:       &endTs,
		Location:    &row.Location,
		Description: &row.Description,
		Attendees:   &row.Attendees,
	})
	if err != nil {
		return nil, err
	}
	return fromRow(updated)
}

func (p *Provider) PatchAttendees(ctx context.Context, id string, attendees []calendar.Attendee) (*calendar.Event, error) {
	raw, err := json.Marshal(attendees)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal attendees")
	}
	encoded := string(raw)
	updated, err := p.store.UpdateEvent(ctx, &store.UpdateEvent{
		UID:       id,
		Attendees: &encoded,
	})
	if err != nil {
		return nil, err
	}
	return fromRow(updated)
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	return p.store.DeleteEvent(ctx, id)
}
