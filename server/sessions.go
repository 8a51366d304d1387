package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/merkle"
)

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions := s.agent.Sessions().List()
	return c.JSON(map[string]any{
		"count":      len(sessions),
		"default_id": s.agent.Sessions().DefaultID(),
		"sessions":   sessions,
	})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, ok := s.agent.Sessions().Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "session not found"})
	}

	st := sess.State()
	return c.JSON(map[string]any{
		"session":   sess.Summary(),
		"messages":  st.Messages,
		"selection": st.Selection,
	})
}

// handleGetTranscript returns the recorded chain of a session, oldest first.
func (s *Server) handleGetTranscript(c *fiber.Ctx) error {
	rec := s.agent.Transcript()
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "transcripts are disabled"})
	}

	sess, ok := s.agent.Sessions().Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "session not found"})
	}
	head := sess.Head()
	if head == "" {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "session has no transcript yet"})
	}

	history, err := rec.History(c.UserContext(), head)
	if err != nil {
		s.logger.Error("failed to build transcript", zap.String("head", head), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to build transcript"})
	}
	return c.JSON(history)
}

func (s *Server) handleTranscriptStats(c *fiber.Ctx) error {
	rec := s.agent.Transcript()
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "transcripts are disabled"})
	}

	stats, err := rec.Stats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to read transcript stats"})
	}
	return c.JSON(stats)
}

func (s *Server) handleListNodes(c *fiber.Ctx) error {
	rec := s.agent.Transcript()
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "transcripts are disabled"})
	}

	nodes, err := rec.Nodes(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}
	return c.JSON(nodes)
}

// ImportResponse is the reply to POST /transcript/nodes.
type ImportResponse struct {
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
	Errors    int `json:"errors"`
}

// handleImportNodes stores nodes pushed from another tabula instance.
// Content addressing makes repeated pushes idempotent.
func (s *Server) handleImportNodes(c *fiber.Ctx) error {
	rec := s.agent.Transcript()
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "transcripts are disabled"})
	}

	var nodes []*merkle.Node
	if err := json.Unmarshal(c.Body(), &nodes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	var resp ImportResponse
	for _, n := range nodes {
		isNew, err := rec.Import(c.UserContext(), n)
		switch {
		case err != nil:
			s.logger.Warn("rejected imported node", zap.Error(err))
			resp.Errors++
		case isNew:
			resp.New++
		default:
			resp.Duplicate++
		}
	}
	return c.JSON(resp)
}
