package research_test

import (
	"testing"

	"research/sdk/research"
)

func agentEvent(node, status string) *research.StreamEvent {
	return &research.StreamEvent{
		Type:        research.EventAgentStatus,
		AgentStatus: &research.AgentStatusEvent{Node: node, Status: status},
	}
}

func chunkEvent(text string) *research.StreamEvent {
	return &research.StreamEvent{
		Type:        research.EventAnswerChunk,
		AnswerChunk: &research.ChunkEvent{Content: text},
	}
}

func completeEvent(sessionID string) *research.StreamEvent {
	return &research.StreamEvent{
		Type:     research.EventComplete,
		Complete: &research.CompleteEvent{SessionID: sessionID, Confidence: "medium"},
	}
}

func TestSessionApply(t *testing.T) {
	t.Run("tracks the current agent", func(t *testing.T) {
		s := research.NewSession("chat-1")

		s.Apply(agentEvent("planning", research.AgentRunning))
		if s.CurrentAgent != "planning" {
			t.Errorf("current agent = %q, want planning", s.CurrentAgent)
		}

		// A new running node overwrites the previous one even without an
		// intervening complete.
		s.Apply(agentEvent("retrieval", research.AgentRunning))
		if s.CurrentAgent != "retrieval" {
			t.Errorf("current agent = %q, want retrieval", s.CurrentAgent)
		}

		s.Apply(agentEvent("retrieval", research.AgentComplete))
		if s.CurrentAgent != "" {
			t.Errorf("current agent = %q, want cleared after complete", s.CurrentAgent)
		}
	})

	t.Run("activity ids stay unique across repeats", func(t *testing.T) {
		s := research.NewSession("chat-1")
		s.Apply(agentEvent("critic", research.AgentComplete))
		s.Apply(agentEvent("critic", research.AgentComplete))

		if len(s.Activity) != 2 {
			t.Fatalf("activity = %d entries, want 2", len(s.Activity))
		}
		if s.Activity[0].ID == s.Activity[1].ID {
			t.Errorf("duplicate activity ids: %q", s.Activity[0].ID)
		}
		if s.Activity[0].ID != "critic-0" || s.Activity[1].ID != "critic-1" {
			t.Errorf("ids = %q, %q", s.Activity[0].ID, s.Activity[1].ID)
		}
	})

	t.Run("chunks accumulate in order", func(t *testing.T) {
		s := research.NewSession("chat-1")
		for _, c := range []string{"The ", "answer ", "is 42."} {
			s.Apply(chunkEvent(c))
		}
		if s.Answer != "The answer is 42." {
			t.Errorf("answer = %q", s.Answer)
		}
	})

	t.Run("events after terminal are ignored", func(t *testing.T) {
		s := research.NewSession("chat-1")
		s.Apply(chunkEvent("before"))
		s.Apply(completeEvent("sess-1"))
		s.Apply(chunkEvent(" after"))
		s.Apply(&research.StreamEvent{
			Type:  research.EventError,
			Error: &research.ErrorEvent{Message: "too late"},
		})

		if s.Answer != "before" {
			t.Errorf("answer mutated after terminal: %q", s.Answer)
		}
		if s.Status != research.StatusComplete || s.ErrMessage != "" {
			t.Errorf("terminal state overwritten: status=%q err=%q", s.Status, s.ErrMessage)
		}
		if !s.Terminal() {
			t.Error("Terminal() = false after complete")
		}
	})

	t.Run("message id from early event survives complete without one", func(t *testing.T) {
		s := research.NewSession("chat-1")
		s.Apply(&research.StreamEvent{
			Type:      research.EventMessageID,
			MessageID: &research.MessageIDEvent{MessageID: "msg-7"},
		})
		s.Apply(completeEvent("sess-1"))

		if s.MessageID != "msg-7" {
			t.Errorf("message id = %q, want msg-7", s.MessageID)
		}
	})

	t.Run("error event records the message", func(t *testing.T) {
		s := research.NewSession("chat-1")
		s.Apply(&research.StreamEvent{
			Type:  research.EventError,
			Error: &research.ErrorEvent{Message: "budget exhausted"},
		})

		if s.Status != research.StatusError || s.ErrMessage != "budget exhausted" {
			t.Errorf("status=%q err=%q", s.Status, s.ErrMessage)
		}
	})
}
