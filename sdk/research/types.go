package research

import (
	"encoding/json"
	"time"
)

// HealthResponse is the backend health check payload.
type HealthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
}

// Chat is one multi-turn conversation.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     *string   `json:"title"`
	ThreadID  string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatWithPreview is a chat summary for list views.
type ChatWithPreview struct {
	Chat
	LastMessagePreview *string `json:"last_message_preview"`
	MessageCount       int     `json:"message_count"`
}

// Message is one stored exchange within a chat.
type Message struct {
	ID            string          `json:"id"`
	ChatID        string          `json:"chat_id"`
	SessionID     *string         `json:"session_id"`
	Query         string          `json:"query"`
	Answer        string          `json:"answer"`
	Role          string          `json:"role"`
	Sources       []Source        `json:"sources"`
	Verification  json.RawMessage `json:"verification,omitempty"`
	Confidence    string          `json:"confidence"`
	Thinking      string          `json:"thinking,omitempty"`
	AgentTimeline json.RawMessage `json:"agent_timeline,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Source is one citation backing an answer. The backend attaches different
// fields per source kind, so everything is optional.
type Source struct {
	Type    string `json:"type,omitempty"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

// CreateChatRequest creates a chat. Title is optional; the backend generates
// one from the first query when omitted.
type CreateChatRequest struct {
	Title *string `json:"title,omitempty"`
}

// QueryRequest is the body of a streaming query.
type QueryRequest struct {
	Query         string   `json:"query"`
	UseWeb        bool     `json:"use_web"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
	GenerateImage bool     `json:"generate_image,omitempty"`
}

// VerificationResult is the payload of a resolved verification poll.
type VerificationResult struct {
	Status       string          `json:"status"`
	Confidence   string          `json:"confidence"`
	Verification json.RawMessage `json:"verification"`
}

// ActivityEntry is one completed agent step in a session's activity log.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
