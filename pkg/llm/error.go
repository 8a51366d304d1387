// Package llm provides the internal representations of chat-completion requests
// and responses exchanged with the language model, along with an
// OpenAI-compatible client.
package llm

import "errors"

var (
	ErrUnauthorized = errors.New("llm unauthorized")
	ErrUnavailable  = errors.New("llm unavailable")
	ErrRateLimited  = errors.New("llm rate limited")
	ErrEmptyReply   = errors.New("llm returned no choices")
)

// ErrorResponse is the plain-text error payload returned to HTTP callers.
type ErrorResponse struct {
	Error string `json:"error"`
}
