package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type httpClient struct {
	client *http.Client
	url    string
}

// NewHTTPClient builds a Client speaking JSON over HTTP to the backend
// process. Commands map to POST /api/command/<name>; timeouts are left to
// the caller's context because call_chat may run for minutes.
func NewHTTPClient(url string) Client {
	return &httpClient{
		client: &http.Client{},
		url:    url,
	}
}

// invoke posts the command body and decodes the response into out when out
// is non-nil. Non-200 responses are returned as errors with the backend's
// own message attached.
func (c *httpClient) invoke(ctx context.Context, command string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("could not marshal %s request: %w", command, err)
		}
	}

	endpoint := c.url + "/api/command/" + command
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("could not create %s request: %w", command, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", command, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", command, resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode %s response: %w", command, err)
	}
	return nil
}

func (c *httpClient) Hello(ctx context.Context) (string, error) {
	var status string
	if err := c.invoke(ctx, "say_hello", nil, &status); err != nil {
		return "", err
	}
	return status, nil
}

func (c *httpClient) GetChatHistory(ctx context.Context) ([]byte, error) {
	// The history payload is kept raw; the model package decodes it with
	// per-field fallbacks.
	var raw json.RawMessage
	if err := c.invoke(ctx, "get_chat_history", struct{}{}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *httpClient) CallChat(ctx context.Context, req *CallChatRequest) error {
	return c.invoke(ctx, "call_chat", req, nil)
}

func (c *httpClient) StopChat(ctx context.Context) error {
	return c.invoke(ctx, "stop_chat", struct{}{}, nil)
}

func (c *httpClient) SetSessionName(ctx context.Context, sid int, name string) (bool, error) {
	body := map[string]any{"sid": sid, "name": name}
	var ok bool
	if err := c.invoke(ctx, "set_session_name", body, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *httpClient) RemoveSession(ctx context.Context, sid int) (bool, error) {
	var ok bool
	if err := c.invoke(ctx, "remove_session", map[string]any{"sid": sid}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *httpClient) GetFileList(ctx context.Context) ([]string, error) {
	// get_file_list answers with a JSON-encoded string holding the actual
	// array, same double encoding as the upload commands.
	var rawList string
	if err := c.invoke(ctx, "get_file_list", struct{}{}, &rawList); err != nil {
		return nil, err
	}
	var files []string
	if err := json.Unmarshal([]byte(rawList), &files); err != nil {
		return nil, fmt.Errorf("could not decode file list: %w", err)
	}
	return files, nil
}

func (c *httpClient) UploadFiles(ctx context.Context, paths []string) error {
	encoded, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("could not marshal upload paths: %w", err)
	}
	return c.invoke(ctx, "upload_file", map[string]any{"paths": string(encoded)}, nil)
}

func (c *httpClient) StopUpload(ctx context.Context) error {
	return c.invoke(ctx, "stop_upload_file", struct{}{}, nil)
}

func (c *httpClient) RemoveFiles(ctx context.Context, paths []string) error {
	encoded, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("could not marshal removal paths: %w", err)
	}
	return c.invoke(ctx, "remove_file", map[string]any{"files": string(encoded)}, nil)
}

func (c *httpClient) GetMissingModels(ctx context.Context, hubPath string, models []string) (*MissingModels, error) {
	body := map[string]any{"modelsAbsPath": hubPath, "models": models}
	var missing MissingModels
	if err := c.invoke(ctx, "get_missing_models", body, &missing); err != nil {
		return nil, err
	}
	return &missing, nil
}

func (c *httpClient) ListMcpServers(ctx context.Context) ([]McpServer, error) {
	var servers []McpServer
	if err := c.invoke(ctx, "get_mcp_servers", struct{}{}, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

func (c *httpClient) AddMcpServer(ctx context.Context, server McpServer) error {
	return c.invoke(ctx, "add_mcp_server", server, nil)
}

func (c *httpClient) RemoveMcpServer(ctx context.Context, name string) error {
	return c.invoke(ctx, "remove_mcp_server", map[string]any{"serverName": name}, nil)
}

func (c *httpClient) ListMcpAgents(ctx context.Context) ([]McpAgent, error) {
	var agents []McpAgent
	if err := c.invoke(ctx, "get_mcp_agents", struct{}{}, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *httpClient) SetAgentActive(ctx context.Context, name string, active bool) error {
	body := map[string]any{"agentName": name, "active": active}
	return c.invoke(ctx, "set_agent_active", body, nil)
}
