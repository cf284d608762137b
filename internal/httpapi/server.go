// Package httpapi provides the HTTP API for courtside.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/orchestrator"
	"github.com/fyrsmithlabs/courtside/internal/plan"
	"github.com/fyrsmithlabs/courtside/internal/turnstore"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes turn orchestration over HTTP.
type Server struct {
	echo   *echo.Echo
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
	config *Config
}

// NewServer creates the HTTP server.
func NewServer(orch *orchestrator.Orchestrator, logger *zap.Logger, cfg *Config) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8600}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		orch:   orch,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")
	v1.POST("/turns", s.handleTurn)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// GameRequest carries game identity in a turn request.
type GameRequest struct {
	GameID   string    `json:"game_id"`
	League   string    `json:"league"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Start    time.Time `json:"start"`
}

// TurnRequest is the request body for POST /v1/turns.
type TurnRequest struct {
	SessionKey  string        `json:"session_key"`
	UserMessage string        `json:"user_message"`
	Game        GameRequest   `json:"game"`
	Venue       string        `json:"venue,omitempty"`
	Plan        plan.TurnPlan `json:"plan"`
}

// ErrorResponse is the error body for failed turns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleTurn runs one turn and maps typed orchestration failures onto
// distinguishable status codes. A degraded answer is still a 200; its body
// carries the failure marker.
func (s *Server) handleTurn(c echo.Context) error {
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid turn request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_key is required")
	}
	if req.Game.GameID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "game.game_id is required")
	}

	answer, err := s.orch.RunTurn(c.Request().Context(), orchestrator.TurnRequest{
		SessionKey:  req.SessionKey,
		UserMessage: req.UserMessage,
		Game: agent.GameMeta{
			GameID:   req.Game.GameID,
			League:   req.Game.League,
			HomeTeam: req.Game.HomeTeam,
			AwayTeam: req.Game.AwayTeam,
			Start:    req.Game.Start,
		},
		Venue: req.Venue,
		Plan:  req.Plan,
	})
	if err != nil {
		return s.mapTurnError(c, err)
	}
	return c.JSON(http.StatusOK, answer)
}

// mapTurnError translates the error taxonomy into HTTP statuses.
func (s *Server) mapTurnError(c echo.Context, err error) error {
	var (
		planErr     *plan.ValidationError
		inFlightErr *turnstore.ErrTurnInFlight
		stepErr     *orchestrator.StepError
	)
	switch {
	case errors.As(err, &planErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: planErr.Error()})
	case errors.As(err, &inFlightErr):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: inFlightErr.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: err.Error()})
	case errors.As(err, &stepErr):
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: stepErr.Error()})
	default:
		s.logger.Error("turn failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
