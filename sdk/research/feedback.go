package research

import (
	"context"
	"fmt"
	"net/http"
)

// FeedbackRequest rates a finished research session. Rating runs 1-5.
type FeedbackRequest struct {
	SessionID string  `json:"session_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment,omitempty"`
}

// FeedbackResponse acknowledges a submitted rating.
type FeedbackResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SubmitFeedback rates a research session so answer quality can be tracked
// over time.
func (c *Client) SubmitFeedback(ctx context.Context, req *FeedbackRequest) (*FeedbackResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("feedback request is required")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5, got %d", req.Rating)
	}

	var result FeedbackResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/feedback/", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
