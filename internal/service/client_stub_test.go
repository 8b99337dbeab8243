package service_test

import (
	"context"
	"sync"

	"superchat/client/internal/backend"
)

// stubClient implements backend.Client with overridable function fields.
// Unset fields answer with success and zero values, so each test only
// wires the calls it cares about. Recorded requests let tests assert on
// what was dispatched.
type stubClient struct {
	mu sync.Mutex

	helloFn          func(ctx context.Context) (string, error)
	getChatHistoryFn func(ctx context.Context) ([]byte, error)
	callChatFn       func(ctx context.Context, req *backend.CallChatRequest) error
	stopChatFn       func(ctx context.Context) error
	setSessionNameFn func(ctx context.Context, sid int, name string) (bool, error)
	removeSessionFn  func(ctx context.Context, sid int) (bool, error)
	getFileListFn    func(ctx context.Context) ([]string, error)
	uploadFilesFn    func(ctx context.Context, paths []string) error
	stopUploadFn     func(ctx context.Context) error
	removeFilesFn    func(ctx context.Context, paths []string) error

	listMcpServersFn func(ctx context.Context) ([]backend.McpServer, error)
	listMcpAgentsFn  func(ctx context.Context) ([]backend.McpAgent, error)
	addMcpServerFn   func(ctx context.Context, server backend.McpServer) error
	setAgentActiveFn func(ctx context.Context, name string, active bool) error

	chatRequests []*backend.CallChatRequest
	stopCalls    int
}

func (c *stubClient) chatRequestLog() []*backend.CallChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*backend.CallChatRequest(nil), c.chatRequests...)
}

func (c *stubClient) stopCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCalls
}

func (c *stubClient) Hello(ctx context.Context) (string, error) {
	if c.helloFn != nil {
		return c.helloFn(ctx)
	}
	return "ready", nil
}

func (c *stubClient) GetChatHistory(ctx context.Context) ([]byte, error) {
	if c.getChatHistoryFn != nil {
		return c.getChatHistoryFn(ctx)
	}
	return []byte("[]"), nil
}

func (c *stubClient) CallChat(ctx context.Context, req *backend.CallChatRequest) error {
	c.mu.Lock()
	c.chatRequests = append(c.chatRequests, req)
	c.mu.Unlock()
	if c.callChatFn != nil {
		return c.callChatFn(ctx, req)
	}
	return nil
}

func (c *stubClient) StopChat(ctx context.Context) error {
	c.mu.Lock()
	c.stopCalls++
	c.mu.Unlock()
	if c.stopChatFn != nil {
		return c.stopChatFn(ctx)
	}
	return nil
}

func (c *stubClient) SetSessionName(ctx context.Context, sid int, name string) (bool, error) {
	if c.setSessionNameFn != nil {
		return c.setSessionNameFn(ctx, sid, name)
	}
	return true, nil
}

func (c *stubClient) RemoveSession(ctx context.Context, sid int) (bool, error) {
	if c.removeSessionFn != nil {
		return c.removeSessionFn(ctx, sid)
	}
	return true, nil
}

func (c *stubClient) GetFileList(ctx context.Context) ([]string, error) {
	if c.getFileListFn != nil {
		return c.getFileListFn(ctx)
	}
	return nil, nil
}

func (c *stubClient) UploadFiles(ctx context.Context, paths []string) error {
	if c.uploadFilesFn != nil {
		return c.uploadFilesFn(ctx, paths)
	}
	return nil
}

func (c *stubClient) StopUpload(ctx context.Context) error {
	if c.stopUploadFn != nil {
		return c.stopUploadFn(ctx)
	}
	return nil
}

func (c *stubClient) RemoveFiles(ctx context.Context, paths []string) error {
	if c.removeFilesFn != nil {
		return c.removeFilesFn(ctx, paths)
	}
	return nil
}

func (c *stubClient) GetMissingModels(ctx context.Context, hubPath string, models []string) (*backend.MissingModels, error) {
	return &backend.MissingModels{}, nil
}

func (c *stubClient) ListMcpServers(ctx context.Context) ([]backend.McpServer, error) {
	if c.listMcpServersFn != nil {
		return c.listMcpServersFn(ctx)
	}
	return nil, nil
}

func (c *stubClient) AddMcpServer(ctx context.Context, server backend.McpServer) error {
	if c.addMcpServerFn != nil {
		return c.addMcpServerFn(ctx, server)
	}
	return nil
}

func (c *stubClient) RemoveMcpServer(ctx context.Context, name string) error {
	return nil
}

func (c *stubClient) ListMcpAgents(ctx context.Context) ([]backend.McpAgent, error) {
	if c.listMcpAgentsFn != nil {
		return c.listMcpAgentsFn(ctx)
	}
	return nil, nil
}

func (c *stubClient) SetAgentActive(ctx context.Context, name string, active bool) error {
	if c.setAgentActiveFn != nil {
		return c.setAgentActiveFn(ctx, name, active)
	}
	return nil
}
