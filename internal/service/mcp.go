package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"superchat/client/internal/backend"
	app_errors "superchat/client/internal/errors"
)

// McpRegistry manages MCP server and agent records against the backend.
// Records live on the backend; the registry keeps a local mirror so reads
// do not round-trip.
type McpRegistry struct {
	mu sync.Mutex

	client  backend.Client
	servers []backend.McpServer
	agents  []backend.McpAgent
}

func NewMcpRegistry(client backend.Client) *McpRegistry {
	return &McpRegistry{client: client}
}

// Refresh reloads the server and agent mirrors from the backend.
func (r *McpRegistry) Refresh(ctx context.Context) error {
	servers, err := r.client.ListMcpServers(ctx)
	if err != nil {
		return fmt.Errorf("listing mcp servers: %w", err)
	}
	agents, err := r.client.ListMcpAgents(ctx)
	if err != nil {
		return fmt.Errorf("listing mcp agents: %w", err)
	}

	r.mu.Lock()
	r.servers = servers
	r.agents = agents
	r.mu.Unlock()
	return nil
}

// Servers returns a copy of the mirrored server records.
func (r *McpRegistry) Servers() []backend.McpServer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.servers)
}

// Agents returns a copy of the mirrored agent records.
func (r *McpRegistry) Agents() []backend.McpAgent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.agents)
}

// AddServer registers a new MCP server. A server needs a name and either
// a URL or a launch command.
func (r *McpRegistry) AddServer(ctx context.Context, server backend.McpServer) (backend.McpServer, error) {
	if server.Name == "" {
		return backend.McpServer{}, fmt.Errorf("%w: server name is required", app_errors.ErrValidation)
	}
	if server.URL == "" && server.Command == "" {
		return backend.McpServer{}, fmt.Errorf("%w: server needs a url or a command", app_errors.ErrValidation)
	}

	r.mu.Lock()
	duplicate := slices.ContainsFunc(r.servers, func(s backend.McpServer) bool {
		return s.Name == server.Name
	})
	r.mu.Unlock()
	if duplicate {
		return backend.McpServer{}, fmt.Errorf("%w: server %q already registered", app_errors.ErrConflict, server.Name)
	}

	server.ID = uuid.New().String()
	if err := r.client.AddMcpServer(ctx, server); err != nil {
		return backend.McpServer{}, fmt.Errorf("adding mcp server %q: %w", server.Name, err)
	}

	r.mu.Lock()
	r.servers = append(r.servers, server)
	r.mu.Unlock()
	slog.Info("Registered MCP server", "name", server.Name, "id", server.ID)
	return server, nil
}

// RemoveServer deletes a server record by name.
func (r *McpRegistry) RemoveServer(ctx context.Context, name string) error {
	r.mu.Lock()
	idx := slices.IndexFunc(r.servers, func(s backend.McpServer) bool { return s.Name == name })
	r.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%w: mcp server %q", app_errors.ErrNotFound, name)
	}

	if err := r.client.RemoveMcpServer(ctx, name); err != nil {
		return fmt.Errorf("removing mcp server %q: %w", name, err)
	}

	r.mu.Lock()
	r.servers = slices.DeleteFunc(r.servers, func(s backend.McpServer) bool { return s.Name == name })
	r.mu.Unlock()
	return nil
}

// SetAgentActive toggles an agent for super-agent routing.
func (r *McpRegistry) SetAgentActive(ctx context.Context, name string, active bool) error {
	r.mu.Lock()
	idx := slices.IndexFunc(r.agents, func(a backend.McpAgent) bool { return a.Name == name })
	r.mu.Unlock()
	if idx < 0 {
		return fmt.Errorf("%w: mcp agent %q", app_errors.ErrNotFound, name)
	}

	if err := r.client.SetAgentActive(ctx, name, active); err != nil {
		return fmt.Errorf("toggling mcp agent %q: %w", name, err)
	}

	r.mu.Lock()
	r.agents[idx].Active = active
	r.mu.Unlock()
	return nil
}
