package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/aide/ai/llm"
	"github.com/hrygo/aide/calendar"
	"github.com/hrygo/aide/feedback"
)

// fakeLLM replays canned responses and records what it was sent.
type fakeLLM struct {
	responses []*llm.ChatResponse
	calls     [][]llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return "", nil
}

func (f *fakeLLM) ChatWithTools(_ context.Context, messages []llm.Message, _ []llm.ToolDescriptor) (*llm.ChatResponse, error) {
	f.calls = append(f.calls, messages)
	if len(f.responses) == 0 {
		return &llm.ChatResponse{Content: "ok"}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func toolCallResponse(name, arguments string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ToolCalls: []llm.ToolCall{
			{
				ID:   "call-1",
				Type: "function",
				Function: llm.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			},
		},
	}
}

func newTestEngine(t *testing.T, service llm.Service, provider calendar.Provider) (*Engine, *feedback.Ledger) {
	t.Helper()
	ledger := feedback.NewLedger(filepath.Join(t.TempDir(), "feedback_log.jsonl"))
	executor := NewExecutor(provider, ledger)
	system := NewSystemContext(provider, ledger)
	return NewEngine(service, executor, system, ledger), ledger
}

func TestHandleTurnPlainReply(t *testing.T) {
	service := &fakeLLM{responses: []*llm.ChatResponse{{Content: "You have one event tomorrow."}}}
	engine, _ := newTestEngine(t, service, &fakeProvider{})

	result, err := engine.HandleTurn(context.Background(), "", "what's on my calendar?")
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "You have one event tomorrow.", result.Reply)
	assert.False(t, result.AwaitingFeedback)
}

func TestHandleTurnEmptyContentFallback(t *testing.T) {
	service := &fakeLLM{responses: []*llm.ChatResponse{{Content: ""}}}
	engine, _ := newTestEngine(t, service, &fakeProvider{})

	result, err := engine.HandleTurn(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "🤖 (No response)", result.Reply)
}

func TestHandleTurnToolCallSetsPendingFeedback(t *testing.T) {
	provider := &fakeProvider{}
	service := &fakeLLM{responses: []*llm.ChatResponse{
		toolCallResponse(ToolCreateEvent,
			`{"title":"Dentist","start_time":"2025-06-01T10:00:00Z","end_time":"2025-06-01T11:00:00Z"}`),
	}}
	engine, ledger := newTestEngine(t, service, provider)

	result, err := engine.HandleTurn(context.Background(), "s1", "book the dentist")
	require.NoError(t, err)

	assert.True(t, result.AwaitingFeedback)
	assert.Contains(t, result.Reply, "✅ Event 'Dentist' created")
	assert.Contains(t, result.Reply, "Did that work as expected?")
	require.Len(t, provider.events, 1)

	// The follow-up turn is consumed as feedback without calling the model.
	result, err = engine.HandleTurn(context.Background(), "s1", "yes")
	require.NoError(t, err)
	assert.Equal(t, "Thanks for your feedback! 😊", result.Reply)
	assert.False(t, result.AwaitingFeedback)
	assert.Len(t, service.calls, 1)

	entries, err := ledger.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, feedback.ResultVerified, entries[0].Result)
	assert.Equal(t, feedback.ResultUserFeedback, entries[1].Result)
	assert.Equal(t, "yes", entries[1].UserFeedback)
	assert.Equal(t, ToolCreateEvent, entries[1].Action)
}

func TestHandleTurnAfterFeedbackResumesNormally(t *testing.T) {
	service := &fakeLLM{responses: []*llm.ChatResponse{
		toolCallResponse(ToolCancelEvent, `{"event_title":"Dentist"}`),
		{Content: "Anything else?"},
	}}
	engine, _ := newTestEngine(t, service, &fakeProvider{
		events: []*calendar.Event{{ID: "ev-1", Title: "Dentist", Start: "2025-06-01T10:00:00Z"}},
	})

	_, err := engine.HandleTurn(context.Background(), "s1", "cancel the dentist")
	require.NoError(t, err)

	_, err = engine.HandleTurn(context.Background(), "s1", "no")
	require.NoError(t, err)

	result, err := engine.HandleTurn(context.Background(), "s1", "list my events")
	require.NoError(t, err)
	assert.Equal(t, "Anything else?", result.Reply)
	assert.False(t, result.AwaitingFeedback)
}

func TestHandleTurnPromptShape(t *testing.T) {
	service := &fakeLLM{responses: []*llm.ChatResponse{
		{Content: "first"},
		{Content: "second"},
	}}
	engine, _ := newTestEngine(t, service, &fakeProvider{})

	_, err := engine.HandleTurn(context.Background(), "s1", "hello")
	require.NoError(t, err)
	_, err = engine.HandleTurn(context.Background(), "s1", "and again")
	require.NoError(t, err)

	require.Len(t, service.calls, 2)
	messages := service.calls[1]
	// system prompt, time note, one history pair, current message.
	require.Len(t, messages, 5)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "personal assistant")
	assert.Contains(t, messages[0].Content, "No upcoming events found.")
	assert.Equal(t, "system", messages[1].Role)
	assert.Contains(t, messages[1].Content, "The current date and time is")
	assert.Equal(t, "user", messages[2].Role)
	assert.Equal(t, "hello", messages[2].Content)
	assert.Equal(t, "assistant", messages[3].Role)
	assert.Equal(t, "first", messages[3].Content)
	assert.Equal(t, "user", messages[4].Role)
	assert.Equal(t, "and again", messages[4].Content)
}

func TestHandleTurnMalformedToolArgumentsFailsTurn(t *testing.T) {
	service := &fakeLLM{responses: []*llm.ChatResponse{
		toolCallResponse(ToolCreateEvent, `{broken`),
	}}
	engine, _ := newTestEngine(t, service, &fakeProvider{})

	_, err := engine.HandleTurn(context.Background(), "s1", "book it")
	require.ErrorIs(t, err, ErrBadArguments)
}

func TestHandleTurnSessionsAreIsolated(t *testing.T) {
	provider := &fakeProvider{}
	service := &fakeLLM{responses: []*llm.ChatResponse{
		toolCallResponse(ToolCreateEvent,
			`{"title":"Dentist","start_time":"2025-06-01T10:00:00Z","end_time":"2025-06-01T11:00:00Z"}`),
		{Content: "hi there"},
	}}
	engine, _ := newTestEngine(t, service, provider)

	result, err := engine.HandleTurn(context.Background(), "s1", "book the dentist")
	require.NoError(t, err)
	require.True(t, result.AwaitingFeedback)

	// Another session is not waiting for feedback.
	result, err = engine.HandleTurn(context.Background(), "s2", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", result.Reply)
	assert.False(t, result.AwaitingFeedback)
}
