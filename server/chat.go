package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID        string `json:"session_id"`
	Reply            string `json:"reply"`
	AwaitingFeedback bool   `json:"awaiting_feedback"`
}

func (s *Server) handleChat(c echo.Context) error {
	request := &chatRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(request.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	start := time.Now()
	result, err := s.handler.HandleTurn(c.Request().Context(), request.SessionID, request.Message)
	if err != nil {
		s.metrics.ObserveTurn("error", time.Since(start))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	outcome := "reply"
	if result.AwaitingFeedback {
		outcome = "action"
	}
	s.metrics.ObserveTurn(outcome, time.Since(start))

	return c.JSON(http.StatusOK, &chatResponse{
		SessionID:        result.SessionID,
		Reply:            result.Reply,
		AwaitingFeedback: result.AwaitingFeedback,
	})
}

func (s *Server) handleRefresh(c echo.Context) error {
	if err := s.handler.Refresh(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "✅ Calendar successfully refreshed.",
	})
}

func (s *Server) handleFeedbackSummary(c echo.Context) error {
	summary, err := s.handler.FeedbackSummary()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
