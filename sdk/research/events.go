package research

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Event names emitted by the streaming query endpoint.
const (
	EventMessageID    = "message_id"
	EventAgentStatus  = "agent_status"
	EventAnswerChunk  = "answer_chunk"
	EventThoughtChunk = "thought_chunk"
	EventSources      = "sources"
	EventTitleUpdated = "title_updated"
	EventComplete     = "complete"
	EventError        = "error"
)

// Agent status values carried by agent_status events.
const (
	AgentRunning  = "running"
	AgentComplete = "complete"
)

// MessageIDEvent surfaces the identifier minted for this exchange.
type MessageIDEvent struct {
	MessageID string `json:"message_id"`
}

// AgentStatusEvent reports a pipeline node starting or finishing.
type AgentStatusEvent struct {
	Node   string `json:"node"`
	Status string `json:"status"`
}

// ChunkEvent carries one increment of answer or thinking text.
type ChunkEvent struct {
	Content string `json:"content"`
}

// SourcesEvent delivers a batch of citations. Batches arrive incrementally
// and are appended, never replaced.
type SourcesEvent struct {
	Sources []Source `json:"sources"`
}

// TitleUpdatedEvent notifies that the chat's title changed. It concerns the
// chat list, not this stream's own session.
type TitleUpdatedEvent struct {
	Title  string `json:"title"`
	ChatID string `json:"chat_id"`
}

// CompleteEvent carries the final metadata for a finished exchange.
type CompleteEvent struct {
	MessageID      string          `json:"message_id"`
	SessionID      string          `json:"session_id"`
	Confidence     string          `json:"confidence"`
	TotalLatencyMS int             `json:"total_latency_ms"`
	Sources        []Source        `json:"sources"`
	Verification   json.RawMessage `json:"verification,omitempty"`
}

// ErrorEvent carries a human-readable failure message from the server.
type ErrorEvent struct {
	Message string `json:"message"`
}

// StreamEvent is one decoded event from a streaming query. Exactly one of
// the typed fields matching Type is set; Raw always holds the frame payload.
type StreamEvent struct {
	Type         string
	MessageID    *MessageIDEvent
	AgentStatus  *AgentStatusEvent
	AnswerChunk  *ChunkEvent
	ThoughtChunk *ChunkEvent
	Sources      *SourcesEvent
	TitleUpdated *TitleUpdatedEvent
	Complete     *CompleteEvent
	Error        *ErrorEvent
	Raw          json.RawMessage
}

// Terminal reports whether the event ends the stream. At most one terminal
// event is delivered per stream, and no events follow it.
func (e *StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// decodeEvent turns a raw frame into a typed StreamEvent. A malformed
// payload returns an error so the caller can skip the frame without
// aborting the stream.
func decodeEvent(f Frame) (*StreamEvent, error) {
	if !gjson.Valid(f.Data) {
		return nil, fmt.Errorf("invalid JSON payload for %q event", f.Event)
	}

	ev := &StreamEvent{Type: f.Event, Raw: json.RawMessage(f.Data)}

	switch f.Event {
	case EventMessageID:
		// The payload key drifted between backend versions.
		id := gjson.Get(f.Data, "message_id")
		if !id.Exists() {
			id = gjson.Get(f.Data, "id")
		}
		ev.MessageID = &MessageIDEvent{MessageID: id.String()}

	case EventAgentStatus:
		var p AgentStatusEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode agent_status: %w", err)
		}
		ev.AgentStatus = &p

	case EventAnswerChunk:
		var p ChunkEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode answer_chunk: %w", err)
		}
		ev.AnswerChunk = &p

	case EventThoughtChunk:
		var p ChunkEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode thought_chunk: %w", err)
		}
		ev.ThoughtChunk = &p

	case EventSources:
		var p SourcesEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode sources: %w", err)
		}
		ev.Sources = &p

	case EventTitleUpdated:
		var p TitleUpdatedEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode title_updated: %w", err)
		}
		ev.TitleUpdated = &p

	case EventComplete:
		var p CompleteEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode complete: %w", err)
		}
		ev.Complete = &p

	case EventError:
		var p ErrorEvent
		if err := json.Unmarshal(ev.Raw, &p); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		ev.Error = &p
	}

	return ev, nil
}
