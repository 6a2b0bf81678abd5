package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/feedback"
)

// contextTimeLayout mirrors "Friday, June 06, 2025 (2025-06-06T10:00:00+0000)".
const contextTimeLayout = "Monday, January 02, 2006 (2006-01-02T15:04:05-0700)"

// staleAfter is how long a calendar snapshot stays trusted before the
// next turn forces a refresh.
const staleAfter = 10 * time.Minute

const promptTimeRules = `
When interpreting dates like "this month" or "next week," use this as the current date.
A "week" is defined as 7 days, and a "month" is defined as 30 days.
"week" starts on Monday and ends on Sunday.
"month" starts on the first day of the month and ends on the last day of the month.
"year" starts on January 1st and ends on December 31st.
"day" starts at 00:00 and ends at 23:59.
`

const promptRole = `
You are a personal assistant who can read and understand the user's calendar events, which are provided below in this prompt.
You should use a friendly tone. Summarize events, detect duplicates, and let the user know if there are any conflicting events.
Appointments are considered the same as calendar events.
Use the data below to answer any questions about appointments or calendar events.
❗ Only answer questions based on the calendar data provided below — you do not have live access to the calendar, but this prompt contains all necessary information.
Do not respond to any questions outside of the calendar.
`

const promptCreateFlow = `
If the user asks to create an appointment or meeting, ask for attendees email addresses, agenda, and any other details.
Before creating the appointment, summarize the appointment details and ask for confirmation.
If the user confirms, create the appointment.
`

const promptTools = "You can also:\n" +
	"- Cancel events by calling `cancel_calendar_event` with title and optional start date.\n" +
	"- Accept or reject invites with `respond_to_event`.\n" +
	"- Modify title, time, location or description with `modify_calendar_event`.\n" +
	"Always use the appropriate tool call.\n" +
	"Ask for user confirmation before creating, modifying, canceling or\n" +
	"responding with Accept or Reject for an event.\n"

const promptResponseNormalization = `
For any meeting invites received, ask the user if they want to accept, decline, or tentatively respond.
When a user expresses an intent to accept, decline, or tentatively respond to an event,
normalize their response to one of the following: "accept", "decline", or "maybe".

Examples:
- If the user says "yes", "approve", or "okay" → treat as "accept"
- If the user says "no", "rejected", or "not coming" → treat as "decline"
- If the user says "unsure", "might", or "thinking about it" → treat as "maybe"

When calling a function to respond to an event, always pass only the normalized value ("accept", "decline", or "maybe") as the response.
`

// qualityWarning is appended when the ledger has more negative than
// positive reactions.
const qualityWarning = "\n⚠️ Note: Users have reported some issues recently. Double-check confirmations!"

// SystemContext holds the calendar snapshot baked into the system
// prompt, refreshed when stale.
type SystemContext struct {
	mu sync.Mutex

	provider calendar.Provider
	ledger   *feedback.Ledger
	now      func() time.Time

	content     string
	refreshedAt time.Time
}

func NewSystemContext(provider calendar.Provider, ledger *feedback.Ledger) *SystemContext {
	return &SystemContext{
		provider: provider,
		ledger:   ledger,
		now:      time.Now,
	}
}

// Ensure returns the system prompt, refreshing the snapshot if it is
// older than the staleness horizon or has never been built.
func (c *SystemContext) Ensure(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshedAt.IsZero() || c.now().Sub(c.refreshedAt) > staleAfter {
		if err := c.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.content, nil
}

// Refresh rebuilds the snapshot unconditionally.
func (c *SystemContext) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *SystemContext) refreshLocked(ctx context.Context) error {
	now := c.now()
	events, err := c.provider.List(ctx, calendar.ForwardWindow(now.UTC()), "")
	if err != nil {
		return err
	}
	snapshot := calendar.Render(events)

	summary, err := c.ledger.Summarize()
	if err != nil {
		slog.Warn("failed to summarize feedback log", "error", err)
		summary = feedback.Summary{}
	}

	c.content = buildSystemPrompt(snapshot, now, summary.Negative > summary.Positive)
	c.refreshedAt = now

	slog.Info("system context refreshed", "events", len(events))
	return nil
}

func buildSystemPrompt(snapshot string, now time.Time, warn bool) string {
	var b strings.Builder
	b.WriteString("System Time Context: The current date and time is " + now.Format(contextTimeLayout) + ".\n")
	b.WriteString(promptTimeRules)
	b.WriteString(promptRole)
	b.WriteString(promptCreateFlow)
	b.WriteString(promptTools)
	b.WriteString(promptResponseNormalization)
	if warn {
		b.WriteString(qualityWarning)
	}
	b.WriteString("Here are the calendar event details:\n")
	b.WriteString(snapshot)
	return b.String()
}
