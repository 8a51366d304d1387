package llm

import "context"

// Oracle is the language model as seen by the rest of the system: a request
// goes in, one assistant message comes back (plain text or tool calls).
type Oracle interface {
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
