package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"superchat/client/internal/backend"
	app_errors "superchat/client/internal/errors"
	"superchat/client/internal/history"
	"superchat/client/internal/model"
)

// StreamCoordinator drives one request/response cycle per send action:
// dispatch, token accumulation, completion, cancellation. At most one cycle
// is in flight at a time; a send while streaming is rejected, never queued.
//
// Every dispatched cycle carries a monotonic token guarding the paths that
// close a cycle (completion event, cancellation, dispatch failure): a
// closer holding a stale token cannot end a newer cycle. Backend frames
// carry no correlation id, so token and first-word events gate on an open
// cycle and rely on the event bus applying frames in arrival order.
type StreamCoordinator struct {
	mu sync.Mutex

	store       *SessionStore
	client      backend.Client
	ready       *Readiness
	historySize int

	token             uint64
	inFlight          bool
	waitingFirstToken bool
	modelLoaded       bool
}

func NewStreamCoordinator(store *SessionStore, client backend.Client, ready *Readiness, historySize int) *StreamCoordinator {
	return &StreamCoordinator{
		store:       store,
		client:      client,
		ready:       ready,
		historySize: historySize,
	}
}

// Completed reports whether no cycle is in flight.
func (c *StreamCoordinator) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlight
}

// WaitingForFirstToken reports whether a dispatched cycle has not yet
// received its first token (the cold-start indicator).
func (c *StreamCoordinator) WaitingForFirstToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitingFirstToken
}

// ModelLoaded reports whether any first token has ever arrived, i.e. the
// backend's model finished its cold start.
func (c *StreamCoordinator) ModelLoaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelLoaded
}

// SendMessage runs the full send flow from user action to backend
// dispatch. resubmitIndex >= 0 regenerates a response: conversation context
// is computed only from messages strictly before that index, and the
// resubmitted message's attachments and workflow are reinstated for this
// and future turns.
func (c *StreamCoordinator) SendMessage(ctx context.Context, input string, resubmitIndex int) error {
	if !c.ready.Ready() {
		return app_errors.ErrNotReady
	}
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: empty prompt", app_errors.ErrValidation)
	}

	messages := c.store.Messages()
	attachedFiles, query := c.store.AttachmentContext()

	previous := messages
	if resubmitIndex >= 0 {
		if resubmitIndex >= len(messages) {
			return fmt.Errorf("%w: resubmit index %d out of range", app_errors.ErrValidation, resubmitIndex)
		}
		resubmit := messages[resubmitIndex]
		attachedFiles = resubmit.AttachedFiles
		query = resubmit.Query
		previous = messages[:resubmitIndex]
	}

	// Claim the cycle before touching the store. The readiness check above
	// is advisory only: two concurrent senders can both observe an open
	// gate, and without this test-and-set both would append a placeholder
	// pair and dispatch.
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return app_errors.ErrNotReady
	}
	c.token++
	token := c.token
	c.inFlight = true
	c.waitingFirstToken = true
	c.mu.Unlock()
	c.ready.SetStreamCompleted(false)

	if resubmitIndex >= 0 {
		c.store.SetAttachmentContext(attachedFiles, query)
	}

	windowed := history.ChainWindow(previous, c.historySize, query, attachedFiles)
	turns := make([]backend.ChatTurn, 0, len(windowed))
	for _, m := range windowed {
		turns = append(turns, backend.ChatTurn{Role: string(m.Sender), Content: m.Text})
	}

	now := time.Now()
	userMessage := model.Message{
		ID:            model.NewMessageID(now),
		Text:          input,
		Sender:        model.SenderUser,
		Query:         query,
		AttachedFiles: attachedFiles,
	}

	// A follow-up on the same workflow inherits the previous question's
	// attachments, so the user is not forced to re-attach per turn.
	if len(userMessage.AttachedFiles) == 0 {
		if last, ok := lastUserMessage(messages); ok && last.Query == query {
			userMessage.AttachedFiles = last.AttachedFiles
		}
	}

	assistantMessage := model.Message{
		ID:     model.NewMessageID(now) + 1,
		Text:   "",
		Sender: model.SenderAssistant,
		Query:  query,
	}
	c.store.AppendPair(userMessage, assistantMessage)

	encodedFiles, err := json.Marshal(userMessage.AttachedFiles)
	if err != nil {
		encodedFiles = []byte("[]")
	}
	sid := c.store.ActiveID()
	req := &backend.CallChatRequest{
		Name: "UI",
		// The session marker lets the backend correlate follow-up turns
		// of the same thread.
		Prompt:              fmt.Sprintf("%s <sid:%d>", input, sid),
		ConversationHistory: turns,
		SID:                 sid,
		Files:               string(encodedFiles),
		PromptOptions:       query.PromptOptions(),
	}

	slog.Debug("Dispatching chat request", "sid", sid, "token", token, "history_turns", len(turns))
	if err := c.client.CallChat(ctx, req); err != nil {
		// Fail open: the stream is marked completed so the user can try
		// again. The empty assistant placeholder stays in the transcript.
		slog.Error("Chat dispatch failed", "sid", sid, "error", err)
		c.finish(token)
		return nil
	}

	c.store.ClearAttachedFiles()
	return nil
}

// ApplyFirstWord handles the first_word event: the backend produced its
// first token, so the model is warm.
func (c *StreamCoordinator) ApplyFirstWord() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight {
		return
	}
	c.waitingFirstToken = false
	c.modelLoaded = true
}

// ApplyToken handles a new_message event: the token text is appended to
// the open assistant message and the reference snapshot replaces the
// previous one (last write wins, references are not accumulated).
func (c *StreamCoordinator) ApplyToken(ev backend.TokenEvent) {
	c.mu.Lock()
	if !c.inFlight {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.store.UpdateLast(func(m *model.Message) {
		m.Text += ev.Message
		if ev.References != nil {
			m.References = ev.References
		}
	})
}

// ApplyCompleted handles the stream-completed event, closing the cycle and
// snapshotting the finished exchange.
func (c *StreamCoordinator) ApplyCompleted(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	inFlight := c.inFlight
	c.mu.Unlock()
	if !inFlight {
		return
	}
	c.finish(token)
	c.store.SnapshotActive(ctx)
}

// StopGeneration asks the backend to stop and unconditionally completes the
// cycle locally. Cancellation is advisory; the backend is the sole
// authority on whether generation actually stops. Safe to call repeatedly.
func (c *StreamCoordinator) StopGeneration(ctx context.Context) {
	if err := c.client.StopChat(ctx); err != nil {
		slog.Warn("Backend cancellation call failed, completing locally anyway", "error", err)
	}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	c.finish(token)
}

// finish closes the cycle identified by token. A stale token (an already
// superseded cycle) is ignored.
func (c *StreamCoordinator) finish(token uint64) {
	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		return
	}
	c.inFlight = false
	c.waitingFirstToken = false
	c.mu.Unlock()
	c.ready.SetStreamCompleted(true)
}

func lastUserMessage(messages []model.Message) (model.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == model.SenderUser {
			return messages[i], true
		}
	}
	return model.Message{}, false
}
