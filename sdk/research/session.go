package research

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus is the terminal state of one streaming exchange.
type SessionStatus string

const (
	// StatusPending means no terminal event has arrived yet.
	StatusPending SessionStatus = "pending"
	// StatusComplete means the stream finished with a complete event.
	StatusComplete SessionStatus = "complete"
	// StatusError means the stream finished with an error event.
	StatusError SessionStatus = "error"
)

// Session accumulates one streaming exchange. It is owned by a single
// streaming call and mutated only by Apply, strictly in arrival order.
// Answer, Thinking, Sources and Activity are append-only.
type Session struct {
	ChatID    string
	MessageID string
	SessionID string

	Answer   string
	Thinking string
	Sources  []Source

	// CurrentAgent is the node currently running, or empty. At most one
	// node is running at a time from the client's perspective.
	CurrentAgent string
	Activity     []ActivityEntry

	Status         SessionStatus
	Confidence     string
	TotalLatencyMS int
	Verification   json.RawMessage
	ErrMessage     string

	seq int
	now func() time.Time
}

// NewSession creates an accumulator for one exchange in the given chat.
func NewSession(chatID string) *Session {
	return &Session{
		ChatID: chatID,
		Status: StatusPending,
		now:    time.Now,
	}
}

// Apply folds one event into the session. Events arriving after a terminal
// event are ignored.
func (s *Session) Apply(ev *StreamEvent) {
	if s.Status != StatusPending {
		return
	}

	switch ev.Type {
	case EventMessageID:
		if ev.MessageID != nil {
			s.MessageID = ev.MessageID.MessageID
		}

	case EventAgentStatus:
		if ev.AgentStatus == nil {
			return
		}
		switch ev.AgentStatus.Status {
		case AgentRunning:
			s.CurrentAgent = ev.AgentStatus.Node
		case AgentComplete:
			s.CurrentAgent = ""
			// The counter keeps entries unique even when the same node
			// completes twice across loop iterations.
			s.Activity = append(s.Activity, ActivityEntry{
				ID:        fmt.Sprintf("%s-%d", ev.AgentStatus.Node, s.seq),
				Agent:     ev.AgentStatus.Node,
				Status:    AgentComplete,
				Timestamp: s.now(),
			})
			s.seq++
		}

	case EventAnswerChunk:
		if ev.AnswerChunk != nil {
			s.Answer += ev.AnswerChunk.Content
		}

	case EventThoughtChunk:
		if ev.ThoughtChunk != nil {
			s.Thinking += ev.ThoughtChunk.Content
		}

	case EventSources:
		if ev.Sources != nil {
			s.Sources = append(s.Sources, ev.Sources.Sources...)
		}

	case EventTitleUpdated:
		// Side channel for the chat list; not part of this session.

	case EventComplete:
		if ev.Complete == nil {
			return
		}
		s.Status = StatusComplete
		s.SessionID = ev.Complete.SessionID
		s.Confidence = ev.Complete.Confidence
		s.TotalLatencyMS = ev.Complete.TotalLatencyMS
		s.Verification = ev.Complete.Verification
		if ev.Complete.MessageID != "" {
			s.MessageID = ev.Complete.MessageID
		}
		// Prefer the definitive list; fall back to accumulated batches.
		if len(ev.Complete.Sources) > 0 {
			s.Sources = ev.Complete.Sources
		}

	case EventError:
		if ev.Error == nil {
			return
		}
		s.Status = StatusError
		s.ErrMessage = ev.Error.Message
	}
}

// Terminal reports whether the session has reached a terminal status.
func (s *Session) Terminal() bool {
	return s.Status != StatusPending
}

// StreamObserver receives stream events as they are dispatched, one method
// per event kind. Callbacks run synchronously within the dispatch loop, in
// arrival order; exactly one of OnComplete or OnError fires per stream.
//
// Embed NoopObserver to implement only the methods you care about.
type StreamObserver interface {
	OnMessageID(id string)
	OnAgentStatus(node, status string)
	OnAnswerChunk(text string)
	OnThoughtChunk(text string)
	OnSources(sources []Source)
	OnTitleUpdated(title, chatID string)
	OnComplete(ev CompleteEvent)
	OnError(message string)
}

// NoopObserver implements StreamObserver with no-ops.
type NoopObserver struct{}

func (NoopObserver) OnMessageID(string)            {}
func (NoopObserver) OnAgentStatus(string, string)  {}
func (NoopObserver) OnAnswerChunk(string)          {}
func (NoopObserver) OnThoughtChunk(string)         {}
func (NoopObserver) OnSources([]Source)            {}
func (NoopObserver) OnTitleUpdated(string, string) {}
func (NoopObserver) OnComplete(CompleteEvent)      {}
func (NoopObserver) OnError(string)                {}

// notify forwards one event to the matching observer method.
func notify(obs StreamObserver, ev *StreamEvent) {
	switch ev.Type {
	case EventMessageID:
		if ev.MessageID != nil {
			obs.OnMessageID(ev.MessageID.MessageID)
		}
	case EventAgentStatus:
		if ev.AgentStatus != nil {
			obs.OnAgentStatus(ev.AgentStatus.Node, ev.AgentStatus.Status)
		}
	case EventAnswerChunk:
		if ev.AnswerChunk != nil {
			obs.OnAnswerChunk(ev.AnswerChunk.Content)
		}
	case EventThoughtChunk:
		if ev.ThoughtChunk != nil {
			obs.OnThoughtChunk(ev.ThoughtChunk.Content)
		}
	case EventSources:
		if ev.Sources != nil {
			obs.OnSources(ev.Sources.Sources)
		}
	case EventTitleUpdated:
		if ev.TitleUpdated != nil {
			obs.OnTitleUpdated(ev.TitleUpdated.Title, ev.TitleUpdated.ChatID)
		}
	case EventComplete:
		if ev.Complete != nil {
			obs.OnComplete(*ev.Complete)
		}
	case EventError:
		if ev.Error != nil {
			obs.OnError(ev.Error.Message)
		}
	}
}
