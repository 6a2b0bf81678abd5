package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/aide/agent"
	"github.com/hrygo/aide/feedback"
	"github.com/hrygo/aide/internal/profile"
)

type fakeHandler struct {
	result     *agent.TurnResult
	err        error
	refreshed  bool
	gotSession string
	gotMessage string
}

func (f *fakeHandler) HandleTurn(_ context.Context, sessionID, message string) (*agent.TurnResult, error) {
	f.gotSession, f.gotMessage = sessionID, message
	return f.result, f.err
}

func (f *fakeHandler) Refresh(context.Context) error {
	f.refreshed = true
	return nil
}

func (f *fakeHandler) FeedbackSummary() (feedback.Summary, error) {
	return feedback.Summary{Positive: 3, Negative: 1, Neutral: 2}, nil
}

func newTestServer(handler TurnHandler) *Server {
	return NewServer(&profile.Profile{Port: 0}, handler)
}

func TestHandleChat(t *testing.T) {
	handler := &fakeHandler{result: &agent.TurnResult{
		SessionID:        "s1",
		Reply:            "✅ Event 'Dentist' created from A to B.",
		AwaitingFeedback: true,
	}}
	s := newTestServer(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"session_id":"s1","message":"book the dentist"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.True(t, resp.AwaitingFeedback)
	assert.Contains(t, resp.Reply, "Dentist")

	assert.Equal(t, "s1", handler.gotSession)
	assert.Equal(t, "book the dentist", handler.gotMessage)
}

func TestHandleChatEmptyMessage(t *testing.T) {
	s := newTestServer(&fakeHandler{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"message":"   "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatEngineError(t *testing.T) {
	s := newTestServer(&fakeHandler{err: fmt.Errorf("llm unavailable")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"message":"hello"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleRefresh(t *testing.T) {
	handler := &fakeHandler{}
	s := newTestServer(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, handler.refreshed)
	assert.Contains(t, rec.Body.String(), "✅ Calendar successfully refreshed.")
}

func TestHandleFeedbackSummary(t *testing.T) {
	s := newTestServer(&fakeHandler{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/summary", nil)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary feedback.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, feedback.Summary{Positive: 3, Negative: 1, Neutral: 2}, summary)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeHandler{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := &fakeHandler{result: &agent.TurnResult{SessionID: "s1", Reply: "hi"}}
	s := newTestServer(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"message":"hello"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	s.echoServer.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "aide_turns_total")
}
