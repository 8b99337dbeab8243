package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"superchat/client/internal/backend"
	app_errors "superchat/client/internal/errors"
	"superchat/client/internal/model"
	"superchat/client/internal/repository"
)

// SessionStore owns the canonical session list, the live message buffer of
// the active session, and the attachment context new messages inherit. All
// mutation goes through its methods; the coordinators hold a reference
// instead of sharing raw state.
type SessionStore struct {
	mu sync.Mutex

	client backend.Client
	cache  repository.Repository
	ready  *Readiness

	sessions []model.Session
	activeID int
	live     []model.Message

	attachedFiles []string
	activeQuery   model.QueryType

	historyLoaded   bool
	switchListeners []func(sid int)
}

func NewSessionStore(client backend.Client, cache repository.Repository, ready *Readiness) *SessionStore {
	return &SessionStore{
		client:   client,
		cache:    cache,
		ready:    ready,
		activeID: -1,
	}
}

// OnSwitch registers a callback fired after every session switch, including
// the re-select of the already active session (used to force dependent
// state to re-sync). Callbacks run without the store lock held.
func (s *SessionStore) OnSwitch(fn func(sid int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchListeners = append(s.switchListeners, fn)
}

// LoadHistory fetches persisted sessions once per app lifetime, appends a
// fresh empty session and selects it. When the backend call fails the local
// cache snapshot stands in; either way the history-loaded guard is set so
// the fetch never repeats.
func (s *SessionStore) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	if s.historyLoaded {
		s.mu.Unlock()
		return nil
	}
	s.historyLoaded = true
	s.mu.Unlock()

	var sessions []model.Session
	raw, err := s.client.GetChatHistory(ctx)
	if err == nil {
		sessions, err = model.ParseSessions(raw)
	}
	if err != nil {
		slog.Error("Could not load chat history from backend, falling back to local cache", "error", err)
		if s.cache != nil {
			cached, cacheErr := s.cache.LoadSessions(ctx)
			if cacheErr != nil {
				slog.Warn("Local history cache unavailable", "error", cacheErr)
			} else {
				sessions = cached
			}
		}
	}

	s.mu.Lock()
	s.sessions = sessions
	for i := range s.sessions {
		s.sessions[i].Selected = false
	}

	fresh := model.Session{
		ID:       model.MaxSessionID(s.sessions) + 1,
		Name:     model.DefaultSessionName,
		Date:     time.Now(),
		Messages: []model.Message{},
		Selected: true,
	}
	s.sessions = append(s.sessions, fresh)
	s.activeID = fresh.ID
	s.live = nil
	s.attachedFiles = nil
	s.activeQuery = model.QueryType{}
	s.mu.Unlock()

	slog.Info("Chat history loaded", "sessions", len(sessions), "active_sid", fresh.ID)
	return nil
}

// NewSession snapshots the active session, appends a fresh empty one with
// the next id and selects it. Rejected while not ready, and when the active
// session is still empty (avoids stacking duplicate empty sessions).
func (s *SessionStore) NewSession(ctx context.Context) (int, error) {
	if !s.ready.Ready() {
		return 0, app_errors.ErrNotReady
	}

	s.mu.Lock()
	if len(s.live) == 0 {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: current session is already empty", app_errors.ErrConflict)
	}

	var outgoing model.Session
	if idx := s.indexOf(s.activeID); idx >= 0 {
		s.sessions[idx].Messages = append([]model.Message(nil), s.live...)
		s.sessions[idx].Selected = false
		outgoing = s.sessions[idx]
	}

	fresh := model.Session{
		ID:       model.MaxSessionID(s.sessions) + 1,
		Name:     model.DefaultSessionName,
		Date:     time.Now(),
		Messages: []model.Message{},
		Selected: true,
	}
	s.sessions = append(s.sessions, fresh)
	s.activeID = fresh.ID
	s.live = nil
	s.attachedFiles = nil
	s.activeQuery = model.QueryType{}
	s.mu.Unlock()

	s.persist(ctx, outgoing)
	slog.Info("New session added", "sid", fresh.ID)
	return fresh.ID, nil
}

// SelectSession switches the active session. Re-selecting the active id
// only emits the switched signal; otherwise the live buffer is snapshotted
// into the outgoing record, the target's messages become the live buffer
// and its attachment/workflow context is restored.
func (s *SessionStore) SelectSession(ctx context.Context, sid int) error {
	if !s.ready.Ready() {
		return app_errors.ErrNotReady
	}

	s.mu.Lock()
	if sid == s.activeID {
		listeners := s.switchListeners
		s.mu.Unlock()
		for _, fn := range listeners {
			fn(sid)
		}
		return nil
	}

	targetIdx := s.indexOf(sid)
	if targetIdx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %d", app_errors.ErrNotFound, sid)
	}

	var outgoing model.Session
	if idx := s.indexOf(s.activeID); idx >= 0 {
		s.sessions[idx].Messages = append([]model.Message(nil), s.live...)
		s.sessions[idx].Selected = false
		outgoing = s.sessions[idx]
	}
	s.sessions[targetIdx].Selected = true
	s.live = append([]model.Message(nil), s.sessions[targetIdx].Messages...)
	s.activeID = sid
	s.restoreAttachmentContext()
	listeners := s.switchListeners
	s.mu.Unlock()

	s.persist(ctx, outgoing)
	for _, fn := range listeners {
		fn(sid)
	}
	return nil
}

// RemoveSession deletes a session. A local-only session (placeholder name,
// no messages) skips the backend; anything else requires backend
// confirmation first and aborts untouched on failure. Removing the active
// session activates the previous neighbor. The last remaining session can
// not be removed.
func (s *SessionStore) RemoveSession(ctx context.Context, sid int) error {
	if !s.ready.Ready() {
		return app_errors.ErrNotReady
	}

	s.mu.Lock()
	idx := s.indexOf(sid)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %d", app_errors.ErrNotFound, sid)
	}
	if len(s.sessions) == 1 {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot remove the last session", app_errors.ErrConflict)
	}

	target := s.sessions[idx]
	localOnly := target.IsLocalOnly()
	if sid == s.activeID {
		localOnly = target.Name == model.DefaultSessionName && len(s.live) == 0
	}
	s.mu.Unlock()

	if !localOnly {
		ok, err := s.client.RemoveSession(ctx, sid)
		if err != nil {
			return fmt.Errorf("could not remove session %d: %w", sid, err)
		}
		if !ok {
			return fmt.Errorf("%w: backend refused to remove session %d", app_errors.ErrInternal, sid)
		}
	}

	s.mu.Lock()
	// Re-find in case the list changed while the backend call ran.
	idx = s.indexOf(sid)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	wasActive := sid == s.activeID
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if wasActive {
		next := idx - 1
		if next < 0 {
			next = 0
		}
		s.sessions[next].Selected = true
		s.activeID = s.sessions[next].ID
		s.live = append([]model.Message(nil), s.sessions[next].Messages...)
		s.restoreAttachmentContext()
	}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.DeleteSession(ctx, sid); err != nil && err != repository.ErrNotFound {
			slog.Warn("Could not drop session from local cache", "sid", sid, "error", err)
		}
	}
	slog.Info("Removed session", "sid", sid)
	return nil
}

// RenameSession updates the local name first (optimistic, better perceived
// latency) and then tells the backend best-effort. A backend failure is
// logged and the local name deliberately stays; the divergence is accepted.
func (s *SessionStore) RenameSession(ctx context.Context, sid int, name string) error {
	s.mu.Lock()
	idx := s.indexOf(sid)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: session %d", app_errors.ErrNotFound, sid)
	}
	s.sessions[idx].Name = name
	s.mu.Unlock()

	ok, err := s.client.SetSessionName(ctx, sid, name)
	if err != nil || !ok {
		slog.Warn("Session name not saved by backend, keeping local name", "sid", sid, "error", err)
	}
	return nil
}

// Sessions returns a copy of the session list in insertion order.
func (s *SessionStore) Sessions() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// ActiveID returns the id of the selected session, or -1 before history
// load.
func (s *SessionStore) ActiveID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Messages returns a copy of the live message buffer.
func (s *SessionStore) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.live...)
}

// AttachmentContext returns the files and workflow query the next message
// will carry.
func (s *SessionStore) AttachmentContext() ([]string, model.QueryType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.attachedFiles...), s.activeQuery
}

// SetAttachmentContext replaces the attachment context for upcoming
// messages.
func (s *SessionStore) SetAttachmentContext(files []string, query model.QueryType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachedFiles = append([]string(nil), files...)
	s.activeQuery = query
}

// ClearAttachedFiles drops the pending file attachments but keeps the
// active workflow query.
func (s *SessionStore) ClearAttachedFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachedFiles = nil
}

// AppendPair appends the user/assistant message pair in one step, renaming
// a still-fresh session to the user's text so the sidebar label reflects
// the first exchange.
func (s *SessionStore) AppendPair(user, assistant model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.live) <= 2 {
		if idx := s.indexOf(s.activeID); idx >= 0 {
			s.sessions[idx].Name = user.Text
		}
	}
	s.live = append(s.live, user, assistant)
}

// UpdateLast applies fn to the last live message, if any. Used by the
// stream coordinator to accumulate tokens and reference snapshots.
func (s *SessionStore) UpdateLast(fn func(*model.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.live) == 0 {
		return
	}
	fn(&s.live[len(s.live)-1])
}

// SnapshotActive writes the live buffer into the active session record and
// persists it to the local cache. Called after each completed exchange.
func (s *SessionStore) SnapshotActive(ctx context.Context) {
	s.mu.Lock()
	var snapshot model.Session
	if idx := s.indexOf(s.activeID); idx >= 0 {
		s.sessions[idx].Messages = append([]model.Message(nil), s.live...)
		snapshot = s.sessions[idx]
	}
	s.mu.Unlock()
	s.persist(ctx, snapshot)
}

// restoreAttachmentContext rebuilds the attachment context from the live
// buffer after a switch: the last message's query plus the most recent
// non-empty attachment set. Callers hold the lock.
func (s *SessionStore) restoreAttachmentContext() {
	if len(s.live) == 0 {
		s.attachedFiles = nil
		s.activeQuery = model.QueryType{}
		return
	}
	s.activeQuery = s.live[len(s.live)-1].Query
	s.attachedFiles = nil
	for i := len(s.live) - 1; i >= 0; i-- {
		if len(s.live[i].AttachedFiles) > 0 {
			s.attachedFiles = append([]string(nil), s.live[i].AttachedFiles...)
			break
		}
	}
}

func (s *SessionStore) indexOf(sid int) int {
	for i := range s.sessions {
		if s.sessions[i].ID == sid {
			return i
		}
	}
	return -1
}

func (s *SessionStore) persist(ctx context.Context, session model.Session) {
	// A zero-value snapshot means there was no active record to save.
	if s.cache == nil || session.Name == "" {
		return
	}
	if err := s.cache.SaveSession(ctx, &session); err != nil {
		slog.Warn("Could not persist session snapshot to local cache", "sid", session.ID, "error", err)
	}
}
