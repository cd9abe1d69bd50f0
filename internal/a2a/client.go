package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultCardPath is the well-known location of the agent card.
const DefaultCardPath = "/.well-known/agent-card.json"

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 4 << 10

// DefaultMaxReplySize bounds an agent card or a non-streamed JSON-RPC reply.
const DefaultMaxReplySize = 16 << 20

// CardResolver fetches agent cards.
type CardResolver interface {
	ResolveCard(ctx context.Context, baseURL string) (*AgentCard, error)
}

// Compile-time interface check.
var _ CardResolver = (*HTTPClient)(nil)

// HTTPClient speaks A2A JSON-RPC over HTTP. It is safe for concurrent use;
// per-conversation state lives in Dispatcher and Stream.
type HTTPClient struct {
	http     *http.Client
	cardPath string
	maxReply int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout. The timeout covers reading a
// whole streamed response, so it must outlast the longest conversation.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// WithCardPath overrides the relative path the agent card is fetched from.
func WithCardPath(path string) ClientOption {
	return func(c *HTTPClient) {
		if path != "" {
			c.cardPath = path
		}
	}
}

// WithMaxReplySize overrides DefaultMaxReplySize. Streamed chunks are
// bounded per line by the SSE decoder instead.
func WithMaxReplySize(n int64) ClientOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxReply = n
		}
	}
}

// NewHTTPClient creates a new A2A HTTP client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: &http.Client{
			Timeout: 5 * time.Minute,
		},
		cardPath: DefaultCardPath,
		maxReply: DefaultMaxReplySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CardURL joins baseURL and the configured card path.
func (c *HTTPClient) CardURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(c.cardPath, "/")
}

// ResolveCard fetches the agent card from the well-known path under baseURL.
// It performs exactly one GET and never retries. Every failure is a
// *ResolutionError.
func (c *HTTPClient) ResolveCard(ctx context.Context, baseURL string) (*AgentCard, error) {
	url := c.CardURL(baseURL)
	fail := func(err error) (*AgentCard, error) {
		return nil, &ResolutionError{URL: url, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var card AgentCard
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxReply)).Decode(&card); err != nil {
		return fail(fmt.Errorf("decode agent card: %w", err))
	}
	if card.Name == "" {
		return fail(errors.New("agent card has no name"))
	}
	return &card, nil
}
