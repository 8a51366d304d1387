// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"errors"
	"net/http/pprof"
	"strings"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/agent"
	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/source"
)

// SessionHeader names the session when the request body doesn't.
const SessionHeader = "X-Session-ID"

// Refresher rebuilds the sheet cache.
type Refresher interface {
	Refresh(ctx context.Context) (*source.RefreshReport, error)
}

// Server serves chat turns, cache refreshes and session inspection.
type Server struct {
	config    Config
	agent     *agent.Agent
	refresher Refresher
	catalog   *catalog.Catalog
	logger    *zap.Logger
	app       *fiber.App
}

// New creates a Server. refresher may be nil, in which case /update reports
// an error.
func New(config Config, a *agent.Agent, refresher Refresher, cat *catalog.Catalog, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		agent:     a,
		refresher: refresher,
		catalog:   cat,
		logger:    logger,
		app:       app,
	}

	app.Use(recover.New())
	app.Use(cors.New())

	// Liveness
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Post("/chat", s.handleChat)
	app.Post("/update", s.handleUpdate)
	app.Get("/catalog", s.handleCatalog)

	// Session and transcript inspection endpoints
	app.Get("/sessions", s.handleListSessions)
	app.Get("/sessions/:id", s.handleGetSession)
	app.Get("/sessions/:id/transcript", s.handleGetTranscript)
	app.Get("/transcript/stats", s.handleTranscriptStats)
	app.Get("/transcript/nodes", s.handleListNodes)
	app.Post("/transcript/nodes", s.handleImportNodes)

	if config.Debug {
		app.Get("/debug/pprof/cmdline", adaptor.HTTPHandlerFunc(pprof.Cmdline))
		app.Get("/debug/pprof/profile", adaptor.HTTPHandlerFunc(pprof.Profile))
		app.Get("/debug/pprof/symbol", adaptor.HTTPHandlerFunc(pprof.Symbol))
		app.Get("/debug/pprof/trace", adaptor.HTTPHandlerFunc(pprof.Trace))
		app.Get("/debug/pprof/*", adaptor.HTTPHandlerFunc(pprof.Index))
	}

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting server",
		zap.String("listen", s.config.ListenAddr),
		zap.Strings("sheets", s.catalog.Names()),
		zap.Bool("debug", s.config.Debug),
	)

	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the reply to POST /chat. On failure Reply carries the same
// plain-text message as Error.
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		s.logger.Debug("failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	sessionID := req.SessionID
	if sessionID == "" {
		// Header values point into a buffer fasthttp reuses; the id outlives
		// the request as a registry key.
		sessionID = utils.CopyString(strings.TrimSpace(c.Get(SessionHeader)))
	}

	reply, err := s.agent.Chat(c.UserContext(), sessionID, req.Message)
	switch {
	case errors.Is(err, agent.ErrEmptyMessage):
		return chatFailure(c, fiber.StatusBadRequest, sessionID, "message is required")
	case err != nil:
		s.logger.Error("chat turn failed", zap.String("session_id", sessionID), zap.Error(err))
		return chatFailure(c, fiber.StatusBadGateway, sessionID, userMessage(err))
	}

	return c.JSON(ChatResponse{Reply: reply.Content, SessionID: reply.SessionID})
}

func chatFailure(c *fiber.Ctx, status int, sessionID, msg string) error {
	return c.Status(status).JSON(ChatResponse{Reply: msg, SessionID: sessionID, Error: msg})
}

// userMessage keeps provider details out of responses.
func userMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		return "the language model rejected our credentials"
	case errors.Is(err, llm.ErrRateLimited):
		return "the language model is rate limiting requests, try again shortly"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "the request was cancelled"
	default:
		return "the language model is unavailable"
	}
}

// UpdateResponse is the reply to POST /update.
type UpdateResponse struct {
	Status string                `json:"status"`
	Result *source.RefreshReport `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	if s.refresher == nil {
		return c.JSON(UpdateResponse{Status: "error", Error: "cache refresh is not configured"})
	}

	report, err := s.refresher.Refresh(c.UserContext())
	if err != nil {
		// Partial failures still carry the per-sheet report.
		return c.JSON(UpdateResponse{Status: "error", Error: err.Error(), Result: report})
	}
	return c.JSON(UpdateResponse{Status: "success", Result: report})
}

func (s *Server) handleCatalog(c *fiber.Ctx) error {
	return c.JSON(map[string]any{
		"sheets": s.catalog.Sheets(),
	})
}
