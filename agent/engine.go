package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/aide/ai/llm"
	"github.com/hrygo/aide/feedback"
)

const (
	feedbackThanks = "Thanks for your feedback! 😊"
	emptyResponse  = "🤖 (No response)"
)

// TurnResult is the outcome of one handled message.
type TurnResult struct {
	SessionID        string `json:"session_id"`
	Reply            string `json:"reply"`
	AwaitingFeedback bool   `json:"awaiting_feedback"`
}

// Engine drives the conversation: it resolves pending feedback,
// assembles the prompt, calls the model, and executes tool calls.
type Engine struct {
	llm      llm.Service
	executor *Executor
	system   *SystemContext
	ledger   *feedback.Ledger
	sessions *SessionManager
	now      func() time.Time
}

func NewEngine(service llm.Service, executor *Executor, system *SystemContext, ledger *feedback.Ledger) *Engine {
	return &Engine{
		llm:      service,
		executor: executor,
		system:   system,
		ledger:   ledger,
		sessions: NewSessionManager(),
		now:      time.Now,
	}
}

// HandleTurn processes one user message for a session. An empty
// session ID starts a new conversation.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	session := e.sessions.Get(sessionID)
	session.Lock()
	defer session.Unlock()

	// A pending action consumes this message as feedback; the model
	// never sees it.
	if session.Pending.Awaiting {
		if err := e.ledger.Record(
			session.Pending.LastAction,
			feedback.ResultUserFeedback,
			message,
			session.Pending.Context,
		); err != nil {
			slog.Error("failed to record user feedback", "error", err)
		}
		session.Pending = PendingFeedback{}
		session.History = append(session.History, Turn{UserText: message, AssistantText: feedbackThanks})
		return &TurnResult{SessionID: session.ID, Reply: feedbackThanks}, nil
	}

	systemPrompt, err := e.system.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, 2*len(session.History)+3)
	messages = append(messages,
		llm.SystemPrompt(systemPrompt),
		llm.SystemPrompt("The current date and time is "+e.now().Format(contextTimeLayout)+"."),
	)
	for _, turn := range session.History {
		messages = append(messages,
			llm.UserMessage(turn.UserText),
			llm.AssistantMessage(turn.AssistantText),
		)
	}
	messages = append(messages, llm.UserMessage(message))

	resp, err := e.llm.ChatWithTools(ctx, messages, Tools())
	if err != nil {
		return nil, err
	}

	// Only the first tool call is honored; one action per turn keeps
	// the feedback loop unambiguous.
	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		slog.Info("executing tool call", "session", session.ID, "tool", call.Function.Name)

		reply, actionContext, err := e.executor.Execute(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			return nil, err
		}

		session.Pending = PendingFeedback{
			Awaiting:   true,
			LastAction: call.Function.Name,
			Context:    actionContext,
		}
		session.History = append(session.History, Turn{UserText: message, AssistantText: reply})
		return &TurnResult{SessionID: session.ID, Reply: reply, AwaitingFeedback: true}, nil
	}

	reply := resp.Content
	if reply == "" {
		reply = emptyResponse
	}
	session.History = append(session.History, Turn{UserText: message, AssistantText: reply})
	return &TurnResult{SessionID: session.ID, Reply: reply}, nil
}

// Refresh rebuilds the calendar snapshot on demand.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.system.Refresh(ctx)
}

// FeedbackSummary exposes the ledger sentiment counts.
func (e *Engine) FeedbackSummary() (feedback.Summary, error) {
	return e.ledger.Summarize()
}
