// Package remote fetches sheets from the spreadsheet backend: an HTTP GET
// endpoint taking a comma-separated sheetName parameter and answering with a
// {"<sheet>": {"rows": [...]}} document.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tabula/pkg/source"
)

// SheetParam is the query parameter carrying the requested sheet names.
const SheetParam = "sheetName"

const maxErrorBodyBytes = 2048

// Config is the remote source configuration.
type Config struct {
	// URL of the backend endpoint, e.g. a deployed Apps Script web app.
	URL string

	// Timeout bounds one request. Zero means no timeout.
	Timeout time.Duration
}

// Client is a source.Source backed by the remote endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ source.Source = (*Client)(nil)

// New creates a new Client.
func New(config Config, logger *zap.Logger) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("remote source URL is required")
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("parse remote source URL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Fetch requests all names in one call.
func (c *Client) Fetch(ctx context.Context, names []string) (map[string]json.RawMessage, error) {
	if len(names) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	u, err := url.Parse(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set(SheetParam, strings.Join(names, ","))
	u.RawQuery = q.Encode()

	c.logger.Debug("fetching sheets from remote source",
		zap.Strings("sheets", names),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("remote source returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return split(body, names)
}

// split maps the response document to per-sheet payloads. A single-sheet
// request may also be answered with the bare {"rows": [...]} payload.
func split(body []byte, names []string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := make(map[string]json.RawMessage, len(names))
	if rows, ok := doc["rows"]; ok && len(names) == 1 {
		if _, named := doc[names[0]]; !named {
			out[names[0]] = json.RawMessage(`{"rows":` + string(rows) + `}`)
			return out, nil
		}
	}

	for _, name := range names {
		if raw, ok := doc[name]; ok && !isNull(raw) {
			out[name] = raw
		}
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
