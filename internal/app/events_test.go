package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superchat/client/internal/backend"
	"superchat/client/internal/service"
)

// A streamed answer only survives intact if every token frame is applied
// before the completion frame that closes the cycle, exactly as the backend
// emitted them.
func TestRouteEvents_AppliesFramesInArrivalOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &idleClient{}
	ready := service.NewReadiness()
	ready.SetBackendReady(true)
	store := service.NewSessionStore(client, nil, ready)
	require.NoError(t, store.LoadHistory(ctx))
	stream := service.NewStreamCoordinator(store, client, ready, 3)
	files := service.NewFileCoordinator(client, ready)

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	t.Cleanup(func() { _ = bus.Close() })
	require.NoError(t, routeEvents(ctx, bus, stream, files))

	require.NoError(t, stream.SendMessage(ctx, "hello", -1))

	var want strings.Builder
	publishEvent(t, bus, backend.EventFirstWord, []byte("{}"))
	for i := 0; i < 50; i++ {
		token := fmt.Sprintf("t%d ", i)
		want.WriteString(token)
		payload, err := json.Marshal(backend.TokenEvent{Message: token})
		require.NoError(t, err)
		publishEvent(t, bus, backend.EventNewMessage, payload)
	}
	publishEvent(t, bus, backend.EventStreamCompleted, []byte("{}"))

	require.Eventually(t, stream.Completed, time.Second, time.Millisecond,
		"completion frame was not applied")
	messages := store.Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, want.String(), messages[len(messages)-1].Text)
	assert.True(t, ready.Ready())
}

func publishEvent(t *testing.T, bus *gochannel.GoChannel, event string, payload []byte) {
	t.Helper()
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(backend.EventNameKey, event)
	require.NoError(t, bus.Publish(backend.TopicEvents, msg))
}

// idleClient answers every backend command with success and zero values.
type idleClient struct{}

func (idleClient) Hello(ctx context.Context) (string, error) { return "ready", nil }

func (idleClient) GetChatHistory(ctx context.Context) ([]byte, error) { return []byte("[]"), nil }

func (idleClient) CallChat(ctx context.Context, req *backend.CallChatRequest) error { return nil }

func (idleClient) StopChat(ctx context.Context) error { return nil }

func (idleClient) SetSessionName(ctx context.Context, sid int, name string) (bool, error) {
	return true, nil
}

func (idleClient) RemoveSession(ctx context.Context, sid int) (bool, error) { return true, nil }

func (idleClient) GetFileList(ctx context.Context) ([]string, error) { return nil, nil }

func (idleClient) UploadFiles(ctx context.Context, paths []string) error { return nil }

func (idleClient) StopUpload(ctx context.Context) error { return nil }

func (idleClient) RemoveFiles(ctx context.Context, paths []string) error { return nil }

func (idleClient) GetMissingModels(ctx context.Context, hubPath string, models []string) (*backend.MissingModels, error) {
	return &backend.MissingModels{}, nil
}

func (idleClient) ListMcpServers(ctx context.Context) ([]backend.McpServer, error) {
	return nil, nil
}

func (idleClient) AddMcpServer(ctx context.Context, server backend.McpServer) error { return nil }

func (idleClient) RemoveMcpServer(ctx context.Context, name string) error { return nil }

func (idleClient) ListMcpAgents(ctx context.Context) ([]backend.McpAgent, error) { return nil, nil }

func (idleClient) SetAgentActive(ctx context.Context, name string, active bool) error { return nil }
