package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/feedback"
)

// feedbackPrompt is appended after every executed action.
const feedbackPrompt = "\n\nDid that work as expected? (yes / no / suggestion)"

// Executor runs tool calls against the calendar provider, verifies the
// outcome against a fresh snapshot, and records it in the ledger.
type Executor struct {
	provider calendar.Provider
	ledger   *feedback.Ledger
	now      func() time.Time
}

func NewExecutor(provider calendar.Provider, ledger *feedback.Ledger) *Executor {
	return &Executor{
		provider: provider,
		ledger:   ledger,
		now:      time.Now,
	}
}

// Execute dispatches one tool call and wraps it with verification and
// ledger logging. The returned context string is kept in the session's
// pending-feedback state.
func (x *Executor) Execute(ctx context.Context, name, arguments string) (string, string, error) {
	result, title, start, err := x.dispatch(ctx, name, arguments)
	if err != nil {
		return "", "", err
	}

	verified, err := x.verify(ctx, title, start)
	if err != nil {
		slog.Warn("calendar verification failed", "tool", name, "error", err)
		verified = false
	}
	if verified {
		result += "\n✅ Verified on calendar."
	} else {
		result += "\n⚠️ Could not verify calendar change."
	}

	ledgerResult := feedback.ResultNotVerified
	if verified {
		ledgerResult = feedback.ResultVerified
	}
	if err := x.ledger.Record(name, ledgerResult, "", arguments); err != nil {
		slog.Error("failed to record action outcome", "tool", name, "error", err)
	}

	result += feedbackPrompt
	return result, arguments, nil
}

// dispatch runs the named tool and returns its reply plus the title
// and start time used for verification.
func (x *Executor) dispatch(ctx context.Context, name, arguments string) (result, title, start string, err error) {
	switch name {
	case ToolCreateEvent:
		var args CreateEventArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", "", "", errors.Wrap(ErrBadArguments, err.Error())
		}
		result, err := x.createEvent(ctx, &args)
		return result, args.Title, args.StartTime, err

	case ToolCancelEvent:
		var args CancelEventArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", "", "", errors.Wrap(ErrBadArguments, err.Error())
		}
		result, err := x.cancelEvent(ctx, &args)
		return result, args.EventTitle, args.StartTime, err

	case ToolModifyEvent:
		var args ModifyEventArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", "", "", errors.Wrap(ErrBadArguments, err.Error())
		}
		result, err := x.modifyEvent(ctx, &args)
		return result, args.EventTitle, args.NewStart, err

	case ToolRespondToEvent:
		var args RespondToEventArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", "", "", errors.Wrap(ErrBadArguments, err.Error())
		}
		result, err := x.respondToEvent(ctx, &args)
		return result, args.EventTitle, "", err

	default:
		return "", "", "", errors.Wrapf(ErrUnknownTool, "%s", name)
	}
}

// verify re-reads the calendar and checks the acted-on title and date
// appear in the fresh snapshot. An empty start time only checks the
// title.
func (x *Executor) verify(ctx context.Context, title, start string) (bool, error) {
	events, err := x.provider.List(ctx, calendar.ForwardWindow(x.now().UTC()), "")
	if err != nil {
		return false, err
	}
	snapshot := calendar.Render(events)
	if title == "" {
		title = "Untitled"
	}
	return strings.Contains(strings.ToLower(snapshot), strings.ToLower(title)) &&
		strings.Contains(snapshot, calendar.DatePrefix(start)), nil
}

func (x *Executor) createEvent(ctx context.Context, args *CreateEventArgs) (string, error) {
	attendees := make([]calendar.Attendee, 0, len(args.Attendees))
	for _, email := range args.Attendees {
		attendees = append(attendees, calendar.Attendee{Email: email})
	}

	_, err := x.provider.Insert(ctx, &calendar.Event{
		Title:       args.Title,
		Start:       args.StartTime,
		End:         args.EndTime,
		Location:    args.Location,
		Description: args.Description,
		Attendees:   attendees,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create event")
	}
	return fmt.Sprintf("✅ Event '%s' created from %s to %s.", args.Title, args.StartTime, args.EndTime), nil
}

func (x *Executor) cancelEvent(ctx context.Context, args *CancelEventArgs) (string, error) {
	events, err := x.provider.List(ctx, calendar.ForwardWindow(x.now().UTC()), args.EventTitle)
	if err != nil {
		return "", errors.Wrap(err, "failed to look up event")
	}
	if len(events) == 0 {
		return fmt.Sprintf("⚠️ No event found with title '%s'.", args.EventTitle), nil
	}

	calendar.SortByStart(events)
	for _, e := range events {
		if args.StartTime == "" || strings.HasPrefix(e.Start, calendar.DatePrefix(args.StartTime)) {
			if err := x.provider.Delete(ctx, e.ID); err != nil {
				return "", errors.Wrapf(err, "failed to cancel event %s", e.ID)
			}
			return fmt.Sprintf("❌ Event '%s' on %s canceled.", args.EventTitle, e.Start), nil
		}
	}
	return fmt.Sprintf("⚠️ No exact match found for '%s' on '%s'.", args.EventTitle, args.StartTime), nil
}

func (x *Executor) modifyEvent(ctx context.Context, args *ModifyEventArgs) (string, error) {
	events, err := x.provider.List(ctx, calendar.ForwardWindow(x.now().UTC()), args.EventTitle)
	if err != nil {
		return "", errors.Wrap(err, "failed to look up event")
	}
	if len(events) == 0 {
		return fmt.Sprintf("⚠️ No event found for '%s'.", args.EventTitle), nil
	}

	calendar.SortByStart(events)
	event := events[0]
	if args.NewTitle != "" {
		event.Title = args.NewTitle
	}
	if args.NewStart != "" {
		event.Start = args.NewStart
	}
	if args.NewEnd != "" {
		event.End = args.NewEnd
	}
	if args.NewDescription != "" {
		event.Description = args.NewDescription
	}
	if args.NewLocation != "" {
		event.Location = args.NewLocation
	}

	if _, err := x.provider.Update(ctx, event.ID, event); err != nil {
		return "", errors.Wrapf(err, "failed to modify event %s", event.ID)
	}
	return fmt.Sprintf("🔁 Event '%s' updated.", args.EventTitle), nil
}

func (x *Executor) respondToEvent(ctx context.Context, args *RespondToEventArgs) (string, error) {
	events, err := x.provider.List(ctx, calendar.ForwardWindow(x.now().UTC()), "")
	if err != nil {
		return "", errors.Wrap(err, "failed to look up event")
	}

	calendar.SortByStart(events)
	response := normalizeResponse(args.Response)
	for _, event := range events {
		if !calendar.MatchesTitle(event, args.EventTitle) {
			continue
		}
		if len(event.Attendees) == 0 {
			return "⚠️ No attendees to respond to.", nil
		}
		attendees := event.Attendees
		for i := range attendees {
			if attendees[i].Self {
				attendees[i].ResponseStatus = response
				break
			}
		}
		if _, err := x.provider.PatchAttendees(ctx, event.ID, attendees); err != nil {
			return "", errors.Wrapf(err, "failed to respond to event %s", event.ID)
		}
		return fmt.Sprintf("✅ Responded '%s' to '%s'", response, event.Title), nil
	}
	return fmt.Sprintf("⚠️ Event '%s' not found.", args.EventTitle), nil
}
