package research

import (
	"context"
	"encoding/json"
	"net/http"
)

// ListChats returns the user's chats with last-message previews, sorted by
// most recently updated.
func (c *Client) ListChats(ctx context.Context) ([]ChatWithPreview, error) {
	var result []ChatWithPreview
	if err := c.doRequest(ctx, http.MethodGet, "/api/chats/", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateChat creates a new chat.
func (c *Client) CreateChat(ctx context.Context, req *CreateChatRequest) (*Chat, error) {
	if req == nil {
		req = &CreateChatRequest{}
	}
	var result Chat
	if err := c.doRequest(ctx, http.MethodPost, "/api/chats/", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetChat retrieves a chat by ID.
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	var result Chat
	if err := c.doRequest(ctx, http.MethodGet, "/api/chats/"+chatID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RenameChat updates a chat's title.
func (c *Client) RenameChat(ctx context.Context, chatID, title string) (*Chat, error) {
	var result Chat
	req := &CreateChatRequest{Title: String(title)}
	if err := c.doRequest(ctx, http.MethodPut, "/api/chats/"+chatID, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteChat deletes a chat and all associated data.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/chats/"+chatID, nil, nil)
}

// ListMessages returns all messages in a chat, oldest first.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	var result []Message
	if err := c.doRequest(ctx, http.MethodGet, "/api/chats/"+chatID+"/messages", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// AgentMemory is the episodic memory of one agent within a chat.
type AgentMemory struct {
	Agent    string          `json:"agent"`
	Memories json.RawMessage `json:"memories"`
}

// ChatMemory returns the episodic memory context for all agents in a chat.
// The shape varies per agent, so the payload is left raw.
func (c *Client) ChatMemory(ctx context.Context, chatID string) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/api/chats/"+chatID+"/memory", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ChatAgentMemory returns the memory of a single agent in a chat.
func (c *Client) ChatAgentMemory(ctx context.Context, chatID, agentName string) (*AgentMemory, error) {
	var result AgentMemory
	if err := c.doRequest(ctx, http.MethodGet, "/api/chats/"+chatID+"/memory/"+agentName, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
