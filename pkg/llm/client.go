package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxErrorBodyBytes = 2048
)

// ClientConfig configures an OpenAI-compatible chat completions client.
type ClientConfig struct {
	// BaseURL of the provider, without the /v1 suffix.
	BaseURL string

	APIKey string

	// Timeout bounds a single HTTP attempt. Zero means no timeout.
	Timeout time.Duration

	// MaxRetries is how many times an unavailable or rate limited request is
	// retried. Negative disables retries.
	MaxRetries int

	// Backoff is the delay before the first retry; it doubles each attempt.
	Backoff time.Duration
}

// Client talks to an OpenAI-compatible /v1/chat/completions endpoint.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Oracle = (*Client)(nil)

// NewClient creates a new Client.
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Backoff <= 0 {
		config.Backoff = defaultBackoff
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Complete sends req and returns the provider's response. Unavailable and
// rate limited responses are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	delay := c.config.Backoff
	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, body)
		if err == nil {
			return resp, nil
		}

		retryable := errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
		if !retryable || attempt >= c.config.MaxRetries {
			return nil, err
		}

		c.logger.Warn("oracle request failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (c *Client) do(ctx context.Context, body []byte) (*ChatResponse, error) {
	url := c.config.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	c.logger.Debug("sending oracle request",
		zap.String("url", url),
		zap.Int("body_size", len(body)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case httpResp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, httpResp.StatusCode)
	case httpResp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("oracle returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var resp ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyReply
	}

	return &resp, nil
}
