package research

import (
	"context"
	"encoding/json"
	"net/http"
)

// ResearchRequest is the body of a one-shot (non-streaming) research query.
type ResearchRequest struct {
	Query       string   `json:"query"`
	UseWeb      bool     `json:"use_web"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// ResearchResult is the complete answer to a one-shot research query.
type ResearchResult struct {
	SessionID      string          `json:"session_id"`
	Query          string          `json:"query"`
	Answer         string          `json:"answer"`
	Sources        []Source        `json:"sources"`
	Verification   json.RawMessage `json:"verification"`
	Confidence     string          `json:"confidence"`
	TotalLatencyMS int             `json:"total_latency_ms"`
}

// TimelineEntry is one agent's execution record within a research session.
type TimelineEntry struct {
	Agent     string          `json:"agent"`
	Events    json.RawMessage `json:"events"`
	LatencyMS int             `json:"latency_ms"`
	Timestamp string          `json:"timestamp"`
}

// AgentTimeline is the execution timeline of a research session.
type AgentTimeline struct {
	SessionID string          `json:"session_id"`
	Timeline  []TimelineEntry `json:"timeline"`
}

// Research executes a query synchronously, waiting for the full answer.
// Use StreamQuery or Ask for incremental delivery.
func (c *Client) Research(ctx context.Context, req *ResearchRequest) (*ResearchResult, error) {
	var result ResearchResult
	if err := c.doRequest(ctx, http.MethodPost, "/api/research/query", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Timeline retrieves the agent execution timeline for a session.
func (c *Client) Timeline(ctx context.Context, sessionID string) (*AgentTimeline, error) {
	var result AgentTimeline
	if err := c.doRequest(ctx, http.MethodGet, "/api/research/"+sessionID+"/timeline", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
