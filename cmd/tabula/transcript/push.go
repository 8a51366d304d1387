package transcriptcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tabula/pkg/merkle"
	"github.com/papercomputeco/tabula/server"
)

const pushLongDesc string = `Send local transcript nodes to a running tabula server.

Nodes are posted in batches to the server's /transcript/nodes endpoint,
which re-hashes each one and skips those it already holds. Pushing the
same database twice is harmless.

Examples:
  tabula transcript push http://10.0.0.7:8000
  tabula transcript push --sqlite ~/.tabula/transcripts.db --batch-size 100 http://localhost:8000`

const pushShortDesc string = "Send transcript nodes to a tabula server"

type pushCommander struct {
	sqlitePath string
	batchSize  int
	timeout    time.Duration
}

func NewPushCmd() *cobra.Command {
	cmder := &pushCommander{}

	cmd := &cobra.Command{
		Use:   "push <server-url>",
		Short: pushShortDesc,
		Long:  pushLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Local transcript database (default from config)")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 500, "Nodes per request")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 30*time.Second, "Timeout per request")

	return cmd
}

func (c *pushCommander) run(ctx context.Context, cmd *cobra.Command, serverURL string) error {
	if c.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.batchSize)
	}
	endpoint := strings.TrimRight(serverURL, "/") + "/transcript/nodes"

	dbPath, err := resolveDBPath(cmd, c.sqlitePath)
	if err != nil {
		return fmt.Errorf("could not resolve local database: %w", err)
	}

	storer, err := merkle.NewSQLiteStorer(dbPath)
	if err != nil {
		return fmt.Errorf("could not open local database %s: %w", dbPath, err)
	}
	defer storer.Close()

	nodes, err := storer.List(ctx)
	if err != nil {
		return fmt.Errorf("could not read local nodes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(nodes) == 0 {
		fmt.Fprintln(out, "Nothing to push.")
		return nil
	}

	client := &http.Client{Timeout: c.timeout}
	var total server.ImportResponse
	for start := 0; start < len(nodes); start += c.batchSize {
		end := min(start+c.batchSize, len(nodes))

		got, err := postNodes(ctx, client, endpoint, nodes[start:end])
		if err != nil {
			return fmt.Errorf("nodes %d-%d: %w", start, end-1, err)
		}
		total.New += got.New
		total.Duplicate += got.Duplicate
		total.Errors += got.Errors
	}

	fmt.Fprintf(out, "Sent %d nodes to %s: %d new, %d present, %d rejected\n",
		len(nodes), serverURL, total.New, total.Duplicate, total.Errors)
	return nil
}

func postNodes(ctx context.Context, client *http.Client, endpoint string, nodes []*merkle.Node) (*server.ImportResponse, error) {
	body, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("encode nodes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("server answered %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var result server.ImportResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
