// Package selector asks the oracle which sheets, and which of their fields,
// are needed to answer the latest user message.
package selector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/llm"
)

// historyWindow is how many earlier user/assistant messages accompany the
// latest one, so follow-ups like "and in Delegation?" can be resolved.
const historyWindow = 6

const instructions = `The data is organized into sheets. Each sheet has a specific meaning, an identity field and a fixed list of fields:

%s
Your job is to find the sheets and fields needed to answer the user's latest message.

Reply with a JSON object mapping each relevant sheet name to an array of at most %d field names, for example:
{"Checklist": ["Task ID", "Status"]}
Don't use markup. Don't use backticks.

### Rules for selecting
1. Only use sheet names and field names exactly as listed above. Never invent sheets or fields.
2. Whenever you return any field for a sheet, include that sheet's identity field.
3. For "how many rows/records/entries" questions return only the identity field.
4. For "how many fields/columns" questions return only the identity field; the field list is supplied separately.
5. For filtered or conditional counts (e.g. "how many are pending") include the identity field plus the field(s) the filter applies to, such as "Status".
6. For greetings, small talk or questions unrelated to this data return {}.
7. If several sheets could match a vague question (e.g. several sheets have a "Status" field), return all of them; the clarifying question is asked later.
`

// Selector picks the relevant subset of the catalog for a conversation.
type Selector struct {
	oracle  llm.Oracle
	catalog *catalog.Catalog
	model   string
	logger  *zap.Logger
}

// New creates a Selector.
func New(oracle llm.Oracle, cat *catalog.Catalog, model string, logger *zap.Logger) *Selector {
	return &Selector{oracle: oracle, catalog: cat, model: model, logger: logger}
}

// Select asks the oracle for a selection. A reply that cannot be parsed
// yields an empty selection; only a failing oracle call returns an error.
func (s *Selector) Select(ctx context.Context, history []llm.Message) (Result, error) {
	req := &llm.ChatRequest{
		Model:    s.model,
		Messages: []llm.Message{llm.UserMessage(s.Prompt(history))},
		Options:  &llm.Options{Temperature: llm.Float(0)},
	}

	resp, err := s.oracle.Complete(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("selector oracle call: %w", err)
	}
	reply, err := resp.Reply()
	if err != nil {
		return Result{}, fmt.Errorf("selector oracle call: %w", err)
	}

	res := Parse(reply.Content, s.catalog)
	if res.Outcome != Parsed {
		s.logger.Warn("selector reply not usable, selecting nothing",
			zap.Stringer("outcome", res.Outcome),
			zap.String("reply", truncate(reply.Content, 200)),
		)
	}
	if len(res.Dropped) > 0 {
		s.logger.Debug("selector named unknown sheets or fields", zap.Strings("dropped", res.Dropped))
	}
	return res, nil
}

// Prompt renders the selection instruction for the given history.
func (s *Selector) Prompt(history []llm.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, instructions, s.catalog.Render(), catalog.MaxFieldsPerSheet)

	latest, earlier := splitLatest(history)
	if len(earlier) > 0 {
		b.WriteString("\n### Conversation so far\n")
		for _, m := range earlier {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("\n### Latest user message\n")
	b.WriteString(latest)
	b.WriteString("\n")
	return b.String()
}

// splitLatest returns the newest user message and up to historyWindow
// user/assistant messages before it. Tool traffic is left out.
func splitLatest(history []llm.Message) (string, []llm.Message) {
	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return "", nil
	}

	var earlier []llm.Message
	for i := last - 1; i >= 0 && len(earlier) < historyWindow; i-- {
		m := history[i]
		if (m.Role == llm.RoleUser || m.Role == llm.RoleAssistant) && m.Content != "" {
			earlier = append([]llm.Message{m}, earlier...)
		}
	}
	return history[last].Content, earlier
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
