package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"

	"superchat/client/internal/model"
)

// Every frame is published on the one TopicEvents topic with the backend's
// event name in message metadata. A single topic keeps the frames in
// arrival order for a single subscriber; the streaming path depends on
// new_message frames preceding their stream-completed.
const (
	TopicEvents  = "backend-events"
	EventNameKey = "event"
)

// Backend-pushed event names, reused verbatim for metadata demuxing.
const (
	EventFirstWord       = "first_word"
	EventNewMessage      = "new_message"
	EventStreamCompleted = "stream-completed"
	EventUploadProgress  = "upload-progress"
	EventUploadCompleted = "upload-completed"
)

// TokenEvent is the new_message payload: one streamed token plus the
// latest reference snapshot. References replace the previous snapshot,
// they are not accumulated.
type TokenEvent struct {
	Message    string            `json:"message"`
	References []model.Reference `json:"references,omitempty"`
}

// UploadProgressEvent reports per-file upload progress.
type UploadProgressEvent struct {
	FilesUploaded        int    `json:"files_uploaded"`
	CurrentFileUploading string `json:"current_file_uploading"`
	CurrentFileProgress  int    `json:"current_file_progress"`
}

// envelope is the websocket frame shape: event name plus raw payload.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EventStream subscribes to the backend's websocket event feed and
// republishes every frame on the in-process bus, preserving the order the
// socket delivered them. No reordering or deduplication happens here.
type EventStream struct {
	url       string
	publisher message.Publisher
	redial    time.Duration
}

// NewEventStream dials wsURL (e.g. ws://127.0.0.1:8188/api/events) and
// publishes frames to the given bus publisher.
func NewEventStream(wsURL string, publisher message.Publisher) *EventStream {
	return &EventStream{
		url:       wsURL,
		publisher: publisher,
		redial:    5 * time.Second,
	}
}

// Run pumps events until the context is canceled. Connection loss is not
// fatal: the stream redials on a fixed interval, mirroring the startup
// prober's fixed-interval policy.
func (s *EventStream) Run(ctx context.Context) {
	for {
		if err := s.pump(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Event stream disconnected, redialing", "error", err, "interval", s.redial)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.redial):
		}
	}
}

func (s *EventStream) pump(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("could not dial event stream: %w", err)
	}
	defer conn.Close()
	slog.Info("Subscribed to backend event stream", "url", s.url)

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("event stream read failed: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			slog.Warn("Dropping undecodable event frame", "error", err)
			continue
		}
		if env.Event == "" {
			continue
		}

		msg := message.NewMessage(watermill.NewUUID(), []byte(env.Payload))
		msg.Metadata.Set(EventNameKey, env.Event)
		if err := s.publisher.Publish(TopicEvents, msg); err != nil {
			slog.Error("Failed to publish backend event", "event", env.Event, "error", err)
		}
	}
}
