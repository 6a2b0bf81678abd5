package agent

import (
	"github.com/pkg/errors"

	"github.com/hrygo/aide/ai/llm"
	"github.com/hrygo/aide/calendar"
)

// Tool names form a closed set; anything else from the model is a
// fatal turn error.
const (
	ToolCreateEvent    = "create_calendar_event"
	ToolCancelEvent    = "cancel_calendar_event"
	ToolModifyEvent    = "modify_calendar_event"
	ToolRespondToEvent = "respond_to_event"
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrBadArguments = errors.New("malformed tool arguments")
)

// Argument payloads as the model emits them.

type CreateEventArgs struct {
	Title       string   `json:"title"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
}

type CancelEventArgs struct {
	EventTitle string `json:"event_title"`
	StartTime  string `json:"start_time,omitempty"`
}

type ModifyEventArgs struct {
	EventTitle     string `json:"event_title"`
	NewTitle       string `json:"new_title,omitempty"`
	NewStart       string `json:"new_start,omitempty"`
	NewEnd         string `json:"new_end,omitempty"`
	NewDescription string `json:"new_description,omitempty"`
	NewLocation    string `json:"new_location,omitempty"`
}

type RespondToEventArgs struct {
	EventTitle string `json:"event_title"`
	Response   string `json:"response"`
}

// normalizeResponse maps the model's vocabulary (and legacy values) to
// attendee response statuses. Unknown values pass through unchanged so
// the provider can reject them.
func normalizeResponse(response string) string {
	switch response {
	case "accept", "accepted", "yes":
		return calendar.ResponseAccepted
	case "decline", "declined", "rejected", "no":
		return calendar.ResponseDeclined
	case "maybe", "tentative", "tentatively":
		return calendar.ResponseTentative
	default:
		return response
	}
}

// Tools returns the tool set offered to the model on every turn.
func Tools() []llm.ToolDescriptor {
	return []llm.ToolDescriptor{
		{
			Name:        ToolCreateEvent,
			Description: "Create a new calendar event",
			Parameters: (&llm.JSONSchema{
				Type: "object",
				Properties: map[string]*llm.JSONSchema{
					"title":       {Type: "string"},
					"start_time":  {Type: "string", Description: "Start time in ISO format"},
					"end_time":    {Type: "string", Description: "End time in ISO format"},
					"description": {Type: "string"},
					"location":    {Type: "string"},
					"attendees": {
						Type:        "array",
						Items:       &llm.JSONSchema{Type: "string"},
						Description: "List of names or emails",
					},
				},
				Required: []string{"title", "start_time", "end_time"},
			}).String(),
		},
		{
			Name:        ToolCancelEvent,
			Description: "Cancel an existing calendar event by title and optional date",
			Parameters: (&llm.JSONSchema{
				Type: "object",
				Properties: map[string]*llm.JSONSchema{
					"event_title": {Type: "string"},
					"start_time":  {Type: "string"},
				},
				Required: []string{"event_title"},
			}).String(),
		},
		{
			Name:        ToolModifyEvent,
			Description: "Modify an existing event's title, time, description or location",
			Parameters: (&llm.JSONSchema{
				Type: "object",
				Properties: map[string]*llm.JSONSchema{
					"event_title":     {Type: "string"},
					"new_title":       {Type: "string"},
					"new_start":       {Type: "string"},
					"new_end":         {Type: "string"},
					"new_description": {Type: "string"},
					"new_location":    {Type: "string"},
				},
				Required: []string{"event_title"},
			}).String(),
		},
		{
			Name:        ToolRespondToEvent,
			Description: "Accept or reject an invitation to a calendar event",
			Parameters: (&llm.JSONSchema{
				Type: "object",
				Properties: map[string]*llm.JSONSchema{
					"event_title": {Type: "string"},
					"response": {
						Type: "string",
						Enum: []string{"accept", "decline", "maybe"},
					},
				},
				Required: []string{"event_title", "response"},
			}).String(),
		},
	}
}
