package research_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"research/sdk/research"
)

// apiServer is a minimal mock of the backend's REST surface. It records the
// requests it serves so tests can assert on methods, paths and headers.
type apiServer struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	ReqID  string
	Body   string
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	as := &apiServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", as.record(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, research.HealthResponse{Status: "healthy", App: "research-chat"})
	}))
	mux.HandleFunc("/api/chats/", as.record(as.handleChats))
	mux.HandleFunc("/api/research/", as.record(as.handleResearch))
	mux.HandleFunc("/api/history/", as.record(as.handleHistory))
	mux.HandleFunc("/api/feedback/", as.record(as.handleFeedback))

	as.server = httptest.NewServer(mux)
	t.Cleanup(as.server.Close)
	return as
}

func (as *apiServer) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body strings.Builder
		if r.Body != nil {
			buf := make([]byte, 4096)
			for {
				n, err := r.Body.Read(buf)
				body.Write(buf[:n])
				if err != nil {
					break
				}
			}
		}

		as.mu.Lock()
		as.requests = append(as.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			ReqID:  r.Header.Get("X-Request-ID"),
			Body:   body.String(),
		})
		as.mu.Unlock()

		next(w, r)
	}
}

func (as *apiServer) last(t *testing.T) recordedRequest {
	t.Helper()
	as.mu.Lock()
	defer as.mu.Unlock()
	if len(as.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return as.requests[len(as.requests)-1]
}

func (as *apiServer) handleChats(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chats/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		writeJSON(w, []research.ChatWithPreview{
			{Chat: research.Chat{ID: "chat-1", Title: research.String("First")}},
			{Chat: research.Chat{ID: "chat-2"}},
		})
	case rest == "" && r.Method == http.MethodPost:
		writeJSON(w, research.Chat{ID: "chat-new"})
	case strings.HasSuffix(rest, "/messages") && r.Method == http.MethodGet:
		writeJSON(w, []research.Message{
			{ID: "msg-1", Role: "user", Query: "hello"},
			{ID: "msg-2", Role: "assistant", Answer: "hi"},
		})
	case strings.Contains(rest, "/memory/") && r.Method == http.MethodGet:
		agent := rest[strings.LastIndex(rest, "/")+1:]
		writeJSON(w, research.AgentMemory{
			Agent:    agent,
			Memories: json.RawMessage(`[{"summary":"earlier run"}]`),
		})
	case strings.HasSuffix(rest, "/memory") && r.Method == http.MethodGet:
		writeJSON(w, map[string]any{
			"planning": []string{"earlier run"},
		})
	case r.Method == http.MethodGet:
		writeJSON(w, research.Chat{ID: rest})
	case r.Method == http.MethodPut:
		writeJSON(w, research.Chat{ID: rest, Title: research.String("Renamed")})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (as *apiServer) handleResearch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/research/")

	switch {
	case rest == "query" && r.Method == http.MethodPost:
		writeJSON(w, research.ResearchResult{
			SessionID:  "sess-1",
			Answer:     "the answer",
			Confidence: "high",
		})
	case strings.HasSuffix(rest, "/timeline") && r.Method == http.MethodGet:
		writeJSON(w, research.AgentTimeline{
			SessionID: strings.TrimSuffix(rest, "/timeline"),
			Timeline: []research.TimelineEntry{
				{Agent: "planning", LatencyMS: 40},
				{Agent: "synthesis", LatencyMS: 900},
			},
		})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (as *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/history/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		writeJSON(w, []research.SessionSummary{
			{ID: "sess-1", Query: "first", Status: "completed"},
			{ID: "sess-2", Query: "second", Status: "failed"},
		})
	case r.Method == http.MethodGet:
		writeJSON(w, research.SessionDetail{
			ID:     rest,
			Query:  "first",
			Status: "completed",
			Result: json.RawMessage(`{"answer":"42"}`),
		})
	case r.Method == http.MethodDelete:
		writeJSON(w, map[string]string{"message": "Session deleted"})
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (as *apiServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, research.FeedbackResponse{ID: "fb-1", Status: "submitted"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestClientRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches bearer token and request id", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL, research.WithStaticToken("secret-token"))

		if _, err := client.Health(ctx); err != nil {
			t.Fatalf("Health() error = %v", err)
		}

		req := srv.last(t)
		if req.Auth != "Bearer secret-token" {
			t.Errorf("Authorization = %q", req.Auth)
		}
		if req.ReqID == "" {
			t.Error("X-Request-ID header missing")
		}
	})

	t.Run("token provider failure aborts the request", func(t *testing.T) {
		srv := newAPIServer(t)
		wantErr := errors.New("vault unavailable")
		client := research.NewClient(srv.server.URL,
			research.WithTokenProvider(func(context.Context) (string, error) {
				return "", wantErr
			}),
		)

		_, err := client.Health(ctx)
		if !errors.Is(err, wantErr) {
			t.Fatalf("Health() error = %v, want wrapped provider error", err)
		}
	})

	t.Run("list chats", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		chats, err := client.ListChats(ctx)
		if err != nil {
			t.Fatalf("ListChats() error = %v", err)
		}
		if len(chats) != 2 || chats[0].ID != "chat-1" {
			t.Errorf("chats = %+v", chats)
		}
		if req := srv.last(t); req.Method != http.MethodGet || req.Path != "/api/chats/" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
	})

	t.Run("create chat with nil request", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		chat, err := client.CreateChat(ctx, nil)
		if err != nil {
			t.Fatalf("CreateChat() error = %v", err)
		}
		if chat.ID != "chat-new" {
			t.Errorf("chat = %+v", chat)
		}
		if req := srv.last(t); req.Method != http.MethodPost {
			t.Errorf("method = %s", req.Method)
		}
	})

	t.Run("rename chat sends the title", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		if _, err := client.RenameChat(ctx, "chat-1", "New Title"); err != nil {
			t.Fatalf("RenameChat() error = %v", err)
		}

		req := srv.last(t)
		if req.Method != http.MethodPut || req.Path != "/api/chats/chat-1" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
		if !strings.Contains(req.Body, `"New Title"`) {
			t.Errorf("body = %s", req.Body)
		}
	})

	t.Run("delete chat", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		if err := client.DeleteChat(ctx, "chat-1"); err != nil {
			t.Fatalf("DeleteChat() error = %v", err)
		}
		if req := srv.last(t); req.Method != http.MethodDelete {
			t.Errorf("method = %s", req.Method)
		}
	})

	t.Run("list messages", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		msgs, err := client.ListMessages(ctx, "chat-1")
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		if len(msgs) != 2 || msgs[1].Role != "assistant" {
			t.Errorf("messages = %+v", msgs)
		}
	})

	t.Run("synchronous research query", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		result, err := client.Research(ctx, &research.ResearchRequest{Query: "q", UseWeb: true})
		if err != nil {
			t.Fatalf("Research() error = %v", err)
		}
		if result.SessionID != "sess-1" || result.Answer != "the answer" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("session timeline", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		tl, err := client.Timeline(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Timeline() error = %v", err)
		}
		if tl.SessionID != "sess-1" || len(tl.Timeline) != 2 {
			t.Errorf("timeline = %+v", tl)
		}
	})

	t.Run("chat memory", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		raw, err := client.ChatMemory(ctx, "chat-1")
		if err != nil {
			t.Fatalf("ChatMemory() error = %v", err)
		}
		if !strings.Contains(string(raw), "planning") {
			t.Errorf("memory context = %s", raw)
		}
		if req := srv.last(t); req.Path != "/api/chats/chat-1/memory" {
			t.Errorf("path = %s", req.Path)
		}

		mem, err := client.ChatAgentMemory(ctx, "chat-1", "critic")
		if err != nil {
			t.Fatalf("ChatAgentMemory() error = %v", err)
		}
		if mem.Agent != "critic" {
			t.Errorf("agent = %q", mem.Agent)
		}
	})

	t.Run("session history", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		sessions, err := client.ListSessions(ctx)
		if err != nil {
			t.Fatalf("ListSessions() error = %v", err)
		}
		if len(sessions) != 2 || sessions[0].Status != "completed" {
			t.Errorf("sessions = %+v", sessions)
		}

		detail, err := client.GetSession(ctx, "sess-1")
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if detail.ID != "sess-1" || len(detail.Result) == 0 {
			t.Errorf("detail = %+v", detail)
		}

		if err := client.DeleteSession(ctx, "sess-1"); err != nil {
			t.Fatalf("DeleteSession() error = %v", err)
		}
		if req := srv.last(t); req.Method != http.MethodDelete || req.Path != "/api/history/sess-1" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
	})

	t.Run("submit feedback", func(t *testing.T) {
		srv := newAPIServer(t)
		client := research.NewClient(srv.server.URL)

		resp, err := client.SubmitFeedback(ctx, &research.FeedbackRequest{
			SessionID: "sess-1",
			Rating:    5,
			Comment:   research.String("spot on"),
		})
		if err != nil {
			t.Fatalf("SubmitFeedback() error = %v", err)
		}
		if resp.Status != "submitted" {
			t.Errorf("response = %+v", resp)
		}
		if req := srv.last(t); !strings.Contains(req.Body, `"rating":5`) {
			t.Errorf("body = %s", req.Body)
		}

		if _, err := client.SubmitFeedback(ctx, &research.FeedbackRequest{SessionID: "s", Rating: 6}); err == nil {
			t.Error("expected an error for an out-of-range rating")
		}
	})

	t.Run("http errors carry status and body", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"Chat not found"}`, http.StatusNotFound)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client := research.NewClient(srv.URL)
		_, err := client.GetChat(ctx, "missing")
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "Chat not found") {
			t.Errorf("error = %v", err)
		}
	})
}
