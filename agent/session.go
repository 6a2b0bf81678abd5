// Package agent implements the conversational calendar assistant:
// session state, system context, tool schemas, action execution, and
// the turn-handling engine.
package agent

import (
	"sync"

	"github.com/lithammer/shortuuid/v4"
)

// Turn is one completed user/assistant exchange.
type Turn struct {
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`
}

// PendingFeedback tracks an action awaiting the user's reaction.
// While Awaiting is set, the next turn is consumed as feedback and
// never reaches the model.
type PendingFeedback struct {
	Awaiting   bool   `json:"awaiting"`
	LastAction string `json:"last_action"`
	Context    string `json:"context"`
}

// Session is one conversation. The mutex serializes turns: concurrent
// messages to the same session are processed one at a time.
type Session struct {
	mu sync.Mutex

	ID      string
	History []Turn
	Pending PendingFeedback
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SessionManager hands out sessions by ID.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: map[string]*Session{}}
}

// Get returns the session with the given ID, creating it on first use.
// An empty ID allocates a fresh session.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = shortuuid.New()
	}
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := &Session{ID: id}
	m.sessions[id] = s
	return s
}
