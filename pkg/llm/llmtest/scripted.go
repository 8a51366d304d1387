// Package llmtest provides an in-process llm.Oracle for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/tabula/pkg/llm"
)

// ErrExhausted is returned once every scripted reply has been consumed.
var ErrExhausted = errors.New("scripted oracle: no replies left")

// Responder computes a reply for a request. Returning an error fails the call.
type Responder func(req *llm.ChatRequest) (llm.Message, error)

// Scripted replays responders in order and records every request it sees.
type Scripted struct {
	mu         sync.Mutex
	responders []Responder
	requests   []*llm.ChatRequest
}

var _ llm.Oracle = (*Scripted)(nil)

// NewScripted creates an oracle that answers with the given responders, one per call.
func NewScripted(responders ...Responder) *Scripted {
	return &Scripted{responders: responders}
}

// Text replies with a plain assistant message.
func Text(content string) Responder {
	return func(*llm.ChatRequest) (llm.Message, error) {
		return llm.AssistantMessage(content), nil
	}
}

// Calls replies with an assistant message requesting the given tool calls.
func Calls(calls ...llm.ToolCall) Responder {
	return func(*llm.ChatRequest) (llm.Message, error) {
		return llm.AssistantMessage("", calls...), nil
	}
}

// Fail makes the call return err.
func Fail(err error) Responder {
	return func(*llm.ChatRequest) (llm.Message, error) {
		return llm.Message{}, err
	}
}

// Call builds a function tool call.
func Call(id, name, arguments string) llm.ToolCall {
	return llm.ToolCall{
		ID:   id,
		Type: "function",
		Function: llm.ToolCallFunction{
			Name:      name,
			Arguments: arguments,
		},
	}
}

func (s *Scripted) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.responders) == 0 {
		return nil, ErrExhausted
	}
	next := s.responders[0]
	s.responders = s.responders[1:]

	msg, err := next(req)
	if err != nil {
		return nil, err
	}
	return &llm.ChatResponse{
		Model:   req.Model,
		Choices: []llm.Choice{{Message: msg, FinishReason: "stop"}},
	}, nil
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []*llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*llm.ChatRequest(nil), s.requests...)
}
