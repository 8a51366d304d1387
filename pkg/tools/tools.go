// Package tools implements the small utilities the answer generator may
// invoke while composing a reply.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/sheets"
)

// Context carries the per-turn state a tool may read.
type Context struct {
	SessionID string

	// Data is what the current turn loaded. Tools never reach past it to the
	// remote source.
	Data sheets.Data
}

// Tool is a function the oracle can call.
type Tool interface {
	Name() string
	Definition() llm.Tool
	Call(ctx context.Context, tctx Context, args json.RawMessage) (any, error)
}

// Registry holds the tools offered to the oracle.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry creates a Registry. A later tool replaces an earlier one with
// the same name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if i, dup := r.index[t.Name()]; dup {
			r.tools[i] = t
			continue
		}
		r.index[t.Name()] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r
}

// Default returns the clock, row counter and record lookup.
func Default() *Registry {
	return NewRegistry(NewClock(nil), RowCounter{}, RecordLookup{})
}

// Definitions lists the declarations sent with an oracle request.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Definition()
	}
	return defs
}

// Execute runs call and wraps the outcome in a tool message. Failures,
// including unknown tools and malformed arguments, are reported to the
// oracle inside the message instead of aborting the turn.
func (r *Registry) Execute(ctx context.Context, tctx Context, call llm.ToolCall) (llm.Message, error) {
	name := call.Function.Name
	i, ok := r.index[name]
	if !ok {
		err := fmt.Errorf("unknown tool %q", name)
		return llm.ToolMessage(call.ID, name, errorContent(err)), err
	}

	t := r.tools[i]

	args := json.RawMessage(call.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	out, err := t.Call(ctx, tctx, args)
	if err != nil {
		return llm.ToolMessage(call.ID, name, errorContent(err)), err
	}

	switch v := out.(type) {
	case string:
		return llm.ToolMessage(call.ID, name, v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			err = fmt.Errorf("encode %s result: %w", name, err)
			return llm.ToolMessage(call.ID, name, errorContent(err)), err
		}
		return llm.ToolMessage(call.ID, name, string(b)), nil
	}
}

func errorContent(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
