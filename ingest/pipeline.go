package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/aide/ai/llm"
	"github.com/hrygo/aide/calendar"
)

// ingestTimeLayout matches the conversational system context.
const ingestTimeLayout = "Monday, January 02, 2006 (2006-01-02T15:04:05-0700)"

const ingestTimeRules = `
When interpreting dates like "this month" or "next week," use this as the current date.
A "week" is defined as 7 days, and a "month" is defined as 30 days.
"week" starts on Monday and ends on Sunday.
"month" starts on the first day of the month and ends on the last day of the month.
"year" starts on January 1st and ends on December 31st.
"day" starts at 00:00 and ends at 23:59.
`

const ingestOutputFormat = `
Consider 12:30 PM as my lunch time and 7:00 PM as my dinner time.
Give my appointment details in the format that is needed to create a calendar event.
Use the below JSON format and create a list of dictionaries.
Only output the JSON content, and make sure it's valid.
{
  "summary": "Appointment Title",
  "location": "Location",
  "description": "Description of the appointment",
  "start": {
    "dateTime": "2025-04-02T12:30:00+05:30",
    "timeZone": "Asia/Kolkata"
  },
  "end": {
    "dateTime": "2025-04-02T13:30:00+05:30",
    "timeZone": "Asia/Kolkata"
  },
  "attendees": [
    {"email": "example@example.com"}
  ]
}
The appointment details should be in the above format.
`

// jsonBlockRE extracts fenced JSON from the model output.
var jsonBlockRE = regexp.MustCompile("(?s)```json(.*?)```")

// Wire format the model is asked to emit, a subset of the calendar
// event resource.
type eventPayload struct {
	Summary     string `json:"summary"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Start       struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
		TimeZone string `json:"timeZone"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
		TimeZone string `json:"timeZone"`
	} `json:"end"`
	Attendees []struct {
		Email string `json:"email"`
	} `json:"attendees"`
}

// Pipeline periodically scans sources for appointment mentions and
// files them into the calendar.
type Pipeline struct {
	llm      llm.Service
	provider calendar.Provider
	marker   *Marker
	sources  []Source

	lookback time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewPipeline(service llm.Service, provider calendar.Provider, marker *Marker, sources []Source, lookback, interval time.Duration) *Pipeline {
	return &Pipeline{
		llm:      service,
		provider: provider,
		marker:   marker,
		sources:  sources,
		lookback: lookback,
		interval: interval,
		now:      time.Now,
	}
}

// Run executes passes until the context is canceled. One pass runs
// immediately, then on every interval tick.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		created, err := p.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("ingestion pass failed", "error", err)
		} else {
			slog.Info("ingestion pass completed", "created", created)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one ingestion pass and returns the number of
// created events. The watermark advances at the start of the pass, so
// a failed pass does not reprocess its window.
func (p *Pipeline) RunOnce(ctx context.Context) (int, error) {
	now := p.now()

	after, ok, err := p.marker.Read()
	if err != nil {
		slog.Warn("failed to read ingestion marker, falling back to lookback", "error", err)
		ok = false
	}
	if !ok {
		after = now.Add(-p.lookback)
	}
	before := now

	if err := p.marker.Write(now); err != nil {
		return 0, err
	}

	slog.Info("fetching messages", "after", after, "before", before)

	var body strings.Builder
	for _, source := range p.sources {
		text, err := source.Fetch(ctx, after, before)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			slog.Error("failed to fetch source", "source", source.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		body.WriteString("Here are my messages from " + source.Name() + ":\n")
		body.WriteString(text)
		body.WriteString("\n")
	}
	if body.Len() == 0 {
		slog.Info("no new messages to process")
		return 0, nil
	}

	systemPrompt := "System Time Context: Today is " + now.Format(ingestTimeLayout) + "\n" +
		ingestTimeRules +
		"\nYou are a personal assistant who can check my messages, identify any appointments and create them in my calendar.\n"

	userPrompt := "Pls identify appointments based on the message data given below.\n" +
		ingestOutputFormat +
		"\n" + body.String()

	result, err := p.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(systemPrompt),
		llm.UserMessage(userPrompt),
	})
	if err != nil {
		return 0, errors.Wrap(err, "appointment extraction failed")
	}
	if strings.TrimSpace(result) == "" {
		slog.Info("extraction returned no content")
		return 0, nil
	}

	payloads, err := parseEvents(result)
	if err != nil {
		slog.Info("no usable events in extraction output", "error", err)
		return 0, nil
	}

	created := 0
	for i, payload := range payloads {
		event := payloadToEvent(payload)
		if event.Title == "" || event.Start == "" {
			slog.Warn("skipping incomplete extracted event", "index", i)
			continue
		}
		duplicate, err := p.isDuplicate(ctx, event)
		if err != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			slog.Error("failed to check for duplicate event", "index", i, "title", event.Title, "error", err)
			continue
		}
		if duplicate {
			slog.Info("duplicate event found, skipping creation", "title", event.Title)
			continue
		}
		if _, err := p.provider.Insert(ctx, event); err != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			slog.Error("failed to create extracted event", "index", i, "title", event.Title, "error", err)
			continue
		}
		created++
	}
	return created, nil
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseEventTime(value string) (time.Time, bool) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isDuplicate reports whether the calendar already holds an event with
// the same title overlapping the candidate's time window. Sources get
// re-read across passes (and senders re-send), so without this guard
// every pass would file another copy of the same appointment.
func (p *Pipeline) isDuplicate(ctx context.Context, event *calendar.Event) (bool, error) {
	start, ok := parseEventTime(event.Start)
	if !ok {
		return false, nil
	}
	end, ok := parseEventTime(event.End)
	if !ok || !end.After(start) {
		end = start.Add(time.Second)
	}
	existing, err := p.provider.List(ctx, calendar.Window{From: start, To: end}, "")
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.Title == event.Title {
			return true, nil
		}
	}
	return false, nil
}

// parseEvents pulls the first fenced JSON block out of the model
// output and decodes it. A bare object is accepted as a list of one.
func parseEvents(result string) ([]*eventPayload, error) {
	matches := jsonBlockRE.FindStringSubmatch(result)
	raw := result
	if len(matches) > 1 {
		raw = matches[1]
	}
	raw = strings.TrimSpace(raw)

	var payloads []*eventPayload
	if err := json.Unmarshal([]byte(raw), &payloads); err != nil {
		single := &eventPayload{}
		if err2 := json.Unmarshal([]byte(raw), single); err2 != nil {
			return nil, errors.Wrap(err, "failed to decode extracted events")
		}
		payloads = []*eventPayload{single}
	}
	return payloads, nil
}

func payloadToEvent(payload *eventPayload) *calendar.Event {
	start := payload.Start.DateTime
	if start == "" {
		start = payload.Start.Date
	}
	end := payload.End.DateTime
	if end == "" {
		end = payload.End.Date
	}

	event := &calendar.Event{
		Title:       payload.Summary,
		Start:       start,
		End:         end,
		Location:    payload.Location,
		Description: payload.Description,
	}
	for _, a := range payload.Attendees {
		if a.Email == "" {
			continue
		}
		event.Attendees = append(event.Attendees, calendar.Attendee{Email: a.Email})
	}
	return event
}
