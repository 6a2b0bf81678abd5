// Package google implements the calendar provider on top of the
// Google Calendar v3 REST API using cached OAuth credentials.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/hrygo/aide/calendar"
)

const (
	calendarScope = "https://www.googleapis.com/auth/calendar"
	eventsBaseURL = "https://www.googleapis.com/calendar/v3/calendars/primary/events"
)

type Provider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// NewProvider builds a provider from the OAuth client credentials and
// the cached token file. Obtaining the initial token is an out-of-band
// step; this only consumes it.
func NewProvider(ctx context.Context, credentialsFile, tokenFile string) (*Provider, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read credentials file %s", credentialsFile)
	}
	config, err := google.ConfigFromJSON(credentials, calendarScope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse credentials file")
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read token file %s", tokenFile)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, errors.Wrap(err, "failed to parse token file")
	}

	return &Provider{
		client:  config.Client(ctx, token),
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		baseURL: eventsBaseURL,
	}, nil
}

// Wire types for the v3 events resource.

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type attendee struct {
	Email          string `json:"email,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
	Self           bool   `json:"self,omitempty"`
}

type event struct {
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       *eventTime `json:"start,omitempty"`
	End         *eventTime `json:"end,omitempty"`
	Attendees   []attendee `json:"attendees,omitempty"`
}

type eventList struct {
	Items []*event `json:"items"`
}

func toEventTime(value string) *eventTime {
	if value == "" {
		return nil
	}
	// A bare date means an all-day event.
	if len(value) == 10 {
		return &eventTime{Date: value}
	}
	return &eventTime{DateTime: value}
}

func fromEventTime(t *eventTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func toWire(e *calendar.Event) *event {
	wire := &event{
		ID:          e.ID,
		Summary:     e.Title,
		Location:    e.Location,
		Description: e.Description,
		Start:       toEventTime(e.Start),
		End:         toEventTime(e.End),
	}
	for _, a := range e.Attendees {
		wire.Attendees = append(wire.Attendees, attendee{
			Email:          a.Email,
			ResponseStatus: a.ResponseStatus,
			Self:           a.Self,
		})
	}
	return wire
}

func fromWire(wire *event) *calendar.Event {
	e := &calendar.Event{
		ID:          wire.ID,
		Title:       wire.Summary,
		Location:    wire.Location,
		Description: wire.Description,
		Start:       fromEventTime(wire.Start),
		End:         fromEventTime(wire.End),
	}
	for _, a := range wire.Attendees {
		e.Attendees = append(e.Attendees, calendar.Attendee{
			Email:          a.Email,
			ResponseStatus: a.ResponseStatus,
			Self:           a.Self,
		})
	}
	return e
}

func (p *Provider) do(ctx context.Context, method, target string, body, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calendar request %s %s failed", method, target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("calendar request %s %s failed with status %d: %s",
			method, target, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode calendar response")
	}
	return nil
}

func (p *Provider) List(ctx context.Context, w calendar.Window, query string) ([]*calendar.Event, error) {
	params := url.Values{}
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", "250")
	if !w.From.IsZero() {
		params.Set("timeMin", w.From.Format(time.RFC3339))
	}
	if !w.To.IsZero() {
		params.Set("timeMax", w.To.Format(time.RFC3339))
	}
	if query != "" {
		params.Set("q", query)
	}

	list := &eventList{}
	if err := p.do(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil, list); err != nil {
		return nil, err
	}

	events := make([]*calendar.Event, 0, len(list.Items))
	for _, item := range list.Items {
		events = append(events, fromWire(item))
	}
	calendar.SortByStart(events)
	return events, nil
}

func (p *Provider) Insert(ctx context.Context, e *calendar.Event) (*calendar.Event, error) {
	created := &event{}
	if err := p.do(ctx, http.MethodPost, p.baseURL, toWire(e), created); err != nil {
		return nil, err
	}
	return fromWire(created), nil
}

func (p *Provider) Update(ctx context.Context, id string, e *calendar.Event) (*calendar.Event, error) {
	updated := &event{}
	target := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(id))
	if err := p.do(ctx, http.MethodPut, target, toWire(e), updated); err != nil {
		return nil, err
	}
	return fromWire(updated), nil
}

func (p *Provider) PatchAttendees(ctx context.Context, id string, attendees []calendar.Attendee) (*calendar.Event, error) {
	patch := &event{}
	for _, a := range attendees {
		patch.Attendees = append(patch.Attendees, attendee{
			Email:          a.Email,
			ResponseStatus: a.ResponseStatus,
			Self:           a.Self,
		})
	}
	updated := &event{}
	target := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(id))
	if err := p.do(ctx, http.MethodPatch, target, patch, updated); err != nil {
		return nil, err
	}
	return fromWire(updated), nil
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	target := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(id))
	return p.do(ctx, http.MethodDelete, target, nil, nil)
}
