package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"superchat/client/internal/backend"
	"superchat/client/internal/service"
)

// routeEvents subscribes the coordinators to the backend event feed on the
// in-process bus. All frames arrive on one topic and a single goroutine
// applies them in arrival order: the streaming path needs every new_message
// applied before its stream-completed, and a per-event fan-out would lose
// that ordering. Messages are always acked because backend events are
// fire-and-forget (a dropped frame is a display glitch, not lost state).
func routeEvents(ctx context.Context, bus *gochannel.GoChannel, stream *service.StreamCoordinator, files *service.FileCoordinator) error {
	messages, err := bus.Subscribe(ctx, backend.TopicEvents)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			applyEvent(ctx, msg, stream, files)
			msg.Ack()
		}
	}()
	return nil
}

func applyEvent(ctx context.Context, msg *message.Message, stream *service.StreamCoordinator, files *service.FileCoordinator) {
	event := msg.Metadata.Get(backend.EventNameKey)
	switch event {
	case backend.EventFirstWord:
		stream.ApplyFirstWord()
	case backend.EventNewMessage:
		var ev backend.TokenEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			slog.Warn("Dropping undecodable token event", "error", err)
			return
		}
		stream.ApplyToken(ev)
	case backend.EventStreamCompleted:
		stream.ApplyCompleted(ctx)
	case backend.EventUploadProgress:
		var ev backend.UploadProgressEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			slog.Warn("Dropping undecodable upload progress event", "error", err)
			return
		}
		files.ApplyUploadProgress(ev.FilesUploaded, ev.CurrentFileUploading, ev.CurrentFileProgress)
	case backend.EventUploadCompleted:
		files.ApplyUploadCompleted(msg.Payload)
	default:
		slog.Debug("Ignoring unknown backend event", "event", event)
	}
}
