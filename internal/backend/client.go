// Package backend is the command/event boundary to the assistant backend
// process. Commands are request/response; streaming results arrive through
// the event subscription in events.go. The backend does the real work
// (inference, embedding, vector search, file ingestion); this package only
// carries requests across.
package backend

import (
	"context"

	"superchat/client/internal/model"
)

// ChatTurn is one prior exchange entry in the conversation history payload.
// The field casing matches what the backend deserializes.
type ChatTurn struct {
	Role    string `json:"Role"`
	Content string `json:"Content"`
}

// CallChatRequest carries everything the backend needs to answer one
// prompt. Files is a JSON-encoded path list; the wire contract predates
// this client and keeps the double encoding.
type CallChatRequest struct {
	Name                string              `json:"name"`
	Prompt              string              `json:"prompt"`
	ConversationHistory []ChatTurn          `json:"conversationHistory"`
	SID                 int                 `json:"sid"`
	Files               string              `json:"files"`
	PromptOptions       model.PromptOptions `json:"promptOptions"`
}

// MissingModels is the get_missing_models response.
type MissingModels struct {
	MissingModels []string `json:"missing_models"`
}

// McpServer is an externally configured tool-providing service the backend
// can route queries through. Managed here only as a CRUD record.
type McpServer struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name"`
	URL      string            `json:"url,omitempty"`
	Command  string            `json:"command,omitempty"`
	Args     []string          `json:"args,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Disabled bool              `json:"disabled"`
}

// McpAgent is a routing agent the super-agent workflow can activate.
type McpAgent struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// Client is the command surface of the backend process. All calls are
// best-effort from the caller's point of view: no retries happen at this
// layer, and callers treat an error as "operation did not happen".
type Client interface {
	// Hello checks backend liveness; a healthy backend answers "ready".
	Hello(ctx context.Context) (string, error)

	GetChatHistory(ctx context.Context) ([]byte, error)
	CallChat(ctx context.Context, req *CallChatRequest) error
	StopChat(ctx context.Context) error
	SetSessionName(ctx context.Context, sid int, name string) (bool, error)
	RemoveSession(ctx context.Context, sid int) (bool, error)

	GetFileList(ctx context.Context) ([]string, error)
	UploadFiles(ctx context.Context, paths []string) error
	StopUpload(ctx context.Context) error
	RemoveFiles(ctx context.Context, paths []string) error

	GetMissingModels(ctx context.Context, hubPath string, models []string) (*MissingModels, error)

	ListMcpServers(ctx context.Context) ([]McpServer, error)
	AddMcpServer(ctx context.Context, server McpServer) error
	RemoveMcpServer(ctx context.Context, name string) error
	ListMcpAgents(ctx context.Context) ([]McpAgent, error)
	SetAgentActive(ctx context.Context, name string, active bool) error
}
