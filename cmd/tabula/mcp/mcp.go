package mcpcmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	"github.com/papercomputeco/tabula/pkg/agent"
	"github.com/papercomputeco/tabula/pkg/source"
)

const mcpLongDesc string = `Serve the agent as MCP tools over stdio.

Tools:
  ask            run one conversation turn and return the reply
  refresh_cache  re-fetch every sheet into the local cache

Example client configuration:
  {"command": "tabula", "args": ["mcp"]}`

const mcpShortDesc string = "Serve MCP tools over stdio"

// Version is reported to MCP clients.
var Version = "dev"

func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	return cmd
}

func run(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	logger := bootstrap.NewStderrLogger(cfg)
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := app.BuildAgent(); err != nil {
		return err
	}
	defer app.Close()

	var refresher Refresher
	if app.Refresher != nil {
		refresher = app.Refresher
	}
	server := NewServer(app.Agent, refresher)
	return server.Run(cmd.Context(), &mcp.StdioTransport{})
}

// Refresher rebuilds the sheet cache.
type Refresher interface {
	Refresh(ctx context.Context) (*source.RefreshReport, error)
}

// AskInput is the argument of the ask tool.
type AskInput struct {
	Message   string `json:"message" jsonschema:"the question to ask about the spreadsheet data"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue; omit for the default one"`
}

// AskOutput is the result of the ask tool.
type AskOutput struct {
	Reply     string   `json:"reply"`
	SessionID string   `json:"session_id"`
	Sheets    []string `json:"sheets"`
}

// RefreshInput is the (empty) argument of the refresh_cache tool.
type RefreshInput struct{}

// RefreshOutput is the result of the refresh_cache tool.
type RefreshOutput struct {
	Status string                `json:"status"`
	Error  string                `json:"error,omitempty"`
	Result *source.RefreshReport `json:"result,omitempty"`
}

// NewServer registers the tabula tools on a new MCP server. refresher may
// be nil.
func NewServer(a *agent.Agent, refresher Refresher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "tabula", Version: Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question about the operations spreadsheets (tasks, purchases, orders, invoices, production).",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
		reply, err := a.Chat(ctx, in.SessionID, in.Message)
		if err != nil {
			return nil, AskOutput{}, fmt.Errorf("ask: %w", err)
		}
		return nil, AskOutput{
			Reply:     reply.Content,
			SessionID: reply.SessionID,
			Sheets:    reply.Selection.Sheets(),
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "refresh_cache",
		Description: "Re-fetch every sheet from the source into the local cache.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshInput) (*mcp.CallToolResult, RefreshOutput, error) {
		if refresher == nil {
			return nil, RefreshOutput{}, errors.New("cache refresh is not configured")
		}
		report, err := refresher.Refresh(ctx)
		if err != nil {
			return nil, RefreshOutput{Status: "error", Error: err.Error(), Result: report}, nil
		}
		return nil, RefreshOutput{Status: "success", Result: report}, nil
	})

	return server
}
