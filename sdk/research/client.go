// Package research provides a Go client for the research-chat backend.
//
// The backend exposes chat CRUD, a streaming research query endpoint
// (Server-Sent Events over a chunked POST response), and a long-poll
// verification endpoint that resolves after the main stream ends.
//
// Example usage:
//
//	client := research.NewClient("http://localhost:8000",
//	    research.WithStaticToken(os.Getenv("RESEARCH_TOKEN")),
//	)
//
//	chat, err := client.CreateChat(ctx, &research.CreateChatRequest{})
//
//	// Stream a query and accumulate the answer
//	session, err := client.Ask(ctx, chat.ID, &research.QueryRequest{
//	    Query:  "What changed in the Q3 filings?",
//	    UseWeb: true,
//	}, nil)
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenProvider supplies a bearer token for outgoing requests. It is called
// once per request so implementations can refresh expired tokens.
type TokenProvider func(ctx context.Context) (string, error)

// Client is the SDK client for the research-chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenProvider
	logger     *zap.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout. Streaming requests use a
// separate client without a timeout and are bounded by context instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if client.httpClient == nil {
			client.httpClient = &http.Client{}
		}
		client.httpClient.Timeout = d
	}
}

// WithTokenProvider sets the bearer token source for all requests.
func WithTokenProvider(p TokenProvider) ClientOption {
	return func(client *Client) {
		client.token = p
	}
}

// WithStaticToken sets a fixed bearer token for all requests.
func WithStaticToken(token string) ClientOption {
	return func(client *Client) {
		client.token = func(context.Context) (string, error) {
			return token, nil
		}
	}
}

// WithLogger sets a structured logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// NewClient creates a new SDK client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// String creates a string pointer (helper for optional fields).
func String(s string) *string {
	return &s
}

// Bool creates a bool pointer (helper for optional fields).
func Bool(b bool) *bool {
	return &b
}

// buildURL builds a request URL under the client's base URL.
func (c *Client) buildURL(path string, queryParams ...map[string]string) string {
	u, _ := url.Parse(c.baseURL + path)

	if len(queryParams) > 0 {
		q := u.Query()
		for _, params := range queryParams {
			for k, v := range params {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// authorize attaches the bearer token and a correlation id to the request.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.token == nil {
		return nil
	}
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("fetch auth token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// doRequest performs an HTTP request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	reqURL := c.buildURL(path)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Health checks the backend health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
