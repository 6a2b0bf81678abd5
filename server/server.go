// Package server exposes the assistant over HTTP and the optional
// Telegram channel.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/aide/agent"
	"github.com/hrygo/aide/feedback"
	"github.com/hrygo/aide/internal/profile"
)

// TurnHandler is the engine surface the transports depend on.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID, message string) (*agent.TurnResult, error)
	Refresh(ctx context.Context) error
	FeedbackSummary() (feedback.Summary, error)
}

type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
	handler    TurnHandler
	metrics    *Metrics
}

func NewServer(profile *profile.Profile, handler TurnHandler) *Server {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())

	s := &Server{
		echoServer: echoServer,
		profile:    profile,
		handler:    handler,
		metrics:    NewMetrics(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "Service ready.")
	})
	s.echoServer.GET("/metrics", s.metrics.Handler())

	apiV1 := s.echoServer.Group("/api/v1")
	apiV1.POST("/chat", s.handleChat)
	apiV1.POST("/refresh", s.handleRefresh)
	apiV1.GET("/feedback/summary", s.handleFeedbackSummary)
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "address", address)
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	slog.Info("server stopped")
}
