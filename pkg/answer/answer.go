// Package answer produces the assistant's reply from the projected data and
// the conversation so far.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/llm"
	"github.com/papercomputeco/tabula/pkg/sheets"
	"github.com/papercomputeco/tabula/pkg/tools"
)

// Refusal is the fixed reply when the data cannot answer the question.
const Refusal = "The data does not contain this information."

// Persona is who the assistant speaks as.
type Persona struct {
	Name         string
	Organization string
}

// DefaultPersona is used when none is configured.
var DefaultPersona = Persona{Name: "Diya", Organization: "Botivate LLP"}

// Config configures a Generator.
type Config struct {
	Model   string
	Persona Persona
	Options *llm.Options
}

// Generator asks the oracle for a reply grounded in a projected view.
type Generator struct {
	config  Config
	oracle  llm.Oracle
	catalog *catalog.Catalog
	tools   *tools.Registry
	logger  *zap.Logger
}

// New creates a Generator. reg may be nil when no tools are offered.
func New(config Config, oracle llm.Oracle, cat *catalog.Catalog, reg *tools.Registry, logger *zap.Logger) *Generator {
	if config.Persona.Name == "" {
		config.Persona.Name = DefaultPersona.Name
	}
	if config.Persona.Organization == "" {
		config.Persona.Organization = DefaultPersona.Organization
	}
	return &Generator{
		config:  config,
		oracle:  oracle,
		catalog: cat,
		tools:   reg,
		logger:  logger,
	}
}

// Generate returns the oracle's next assistant message for history. When
// withTools is false no tools are declared, so the reply is plain text.
func (g *Generator) Generate(ctx context.Context, view sheets.View, history []llm.Message, withTools bool) (llm.Message, error) {
	system, err := g.SystemPrompt(view)
	if err != nil {
		return llm.Message{}, err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(system))
	messages = append(messages, history...)

	req := &llm.ChatRequest{
		Model:    g.config.Model,
		Messages: messages,
		Options:  g.config.Options,
	}
	if withTools && g.tools != nil {
		req.Tools = g.tools.Definitions()
		req.ToolChoice = "auto"
	}

	g.logger.Debug("generating answer",
		zap.Int("history", len(history)),
		zap.Int("sheets", len(view)),
		zap.Bool("tools", len(req.Tools) > 0),
	)

	resp, err := g.oracle.Complete(ctx, req)
	if err != nil {
		return llm.Message{}, fmt.Errorf("answer oracle call: %w", err)
	}
	reply, err := resp.Reply()
	if err != nil {
		return llm.Message{}, fmt.Errorf("answer oracle call: %w", err)
	}
	reply.Role = llm.RoleAssistant
	if !withTools {
		reply.ToolCalls = nil
	}
	return reply, nil
}

// SystemPrompt renders the persona, the schema of the selected sheets, the
// data itself and the answering rules.
func (g *Generator) SystemPrompt(view sheets.View) (string, error) {
	loaded := make(sheets.View, len(view))
	for name, snap := range view {
		if !snap.Unavailable {
			loaded[name] = snap
		}
	}
	missing := sheets.Data(view).Unavailable()

	data, err := json.MarshalIndent(loaded, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode data: %w", err)
	}

	var b strings.Builder
	p := g.config.Persona
	fmt.Fprintf(&b, "Your name is %s. You are an AI agent for %s that resolves user queries regarding their process status and real time analytics.\n", p.Name, p.Organization)
	b.WriteString("You reply concisely with crisp and meaningful responses. Your responses reflect professionalism.\n\n")
	b.WriteString("For any query about today's date or the current time use the `get_datetime` tool.\n\n")

	names := sheets.Data(view).Names()
	if len(names) > 0 {
		b.WriteString("### Sheets in scope\n")
		b.WriteString(g.catalog.RenderSheets(names))
	}

	b.WriteString("### Data\n")
	b.WriteString("Each sheet lists total_row_count (rows in the full sheet) and rows reduced to the fields relevant to the question.\n")
	b.Write(data)
	b.WriteString("\n\n")

	if len(missing) > 0 {
		b.WriteString("### Sheets not available\n")
		b.WriteString("These sheets could not be loaded, so nothing is known about their rows or totals:\n")
		for _, name := range missing {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		fmt.Fprintf(&b, "For any question about them respond exactly with: \"%s\"\n\n", Refusal)
	}

	fmt.Fprintf(&b, `### Rules for answering
1. Only use the sheets and fields listed above. Do not invent fields or values.
2. For the number of rows in a sheet use its total_row_count. For the number of fields use the field count listed under "Sheets in scope".
3. For filtered counts, count the matching rows in the data yourself; use count_rows only for an explicit list of rows.
4. If the user asks a vague question like "How many are pending?":
   - Look for the sheet(s) with a "Status" or "Pending" field.
   - If only one sheet qualifies, assume that's what they mean.
   - If multiple sheets could apply, politely ask for clarification.
5. If the required information does not exist in the data, respond exactly with:
   "%s"
6. Never fabricate rows or totals. Only count or extract from the data above. A sheet listed as not available has no data, not zero rows.
7. For greetings, greet back briefly as %s without making claims about the data.
8. Always answer in a clear, concise, professional tone as %s.
`, Refusal, p.Name, p.Name)

	return b.String(), nil
}
