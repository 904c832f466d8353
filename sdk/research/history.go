package research

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// SessionSummary is one research session in the history list.
type SessionSummary struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDetail is the full record of a research session, including its
// result once the pipeline finished.
type SessionDetail struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// ListSessions returns the user's research sessions, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var result []SessionSummary
	if err := c.doRequest(ctx, http.MethodGet, "/api/history/", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetSession retrieves the full details of a research session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionDetail, error) {
	var result SessionDetail
	if err := c.doRequest(ctx, http.MethodGet, "/api/history/"+sessionID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSession deletes a research session and its logs.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/history/"+sessionID, nil, nil)
}
