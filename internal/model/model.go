package model

import (
	"time"
)

// DefaultSessionName is the placeholder name a freshly opened session
// carries until its first exchange completes. A session that still has this
// name and no messages was never persisted by the backend.
const DefaultSessionName = "<New Session>"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Reference is a citation record attached to assistant messages by the
// streaming events. Page and Sheet are optional and depend on the source
// file type.
type Reference struct {
	File  string `json:"file"`
	Page  *int   `json:"page,omitempty"`
	Sheet string `json:"sheet,omitempty"`
}

// Message is a single entry in a session's transcript. The ID is derived
// from the wall clock at creation time; it is a list key and an ordering
// proxy, not a strict monotonic sequence. Assistant message text grows
// incrementally while a stream is in flight.
type Message struct {
	ID            int64       `json:"id"`
	Text          string      `json:"text"`
	Sender        Sender      `json:"sender"`
	Query         QueryType   `json:"query_type"`
	References    []Reference `json:"references,omitempty"`
	AttachedFiles []string    `json:"attached_files,omitempty"`
}

// Session is a named, ordered conversation thread. Selected is true for
// exactly one session in the in-memory list; the switch operation enforces
// this, not the struct.
type Session struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	Messages []Message `json:"messages"`
	Selected bool      `json:"selected"`
}

// NewMessageID derives a message id from the given instant. Two messages
// created in the same millisecond collide; ordering then falls back to
// list position, which is acceptable for transcript display.
func NewMessageID(t time.Time) int64 {
	return t.UnixMilli()
}

// MaxSessionID returns the highest session id in the list, or -1 when the
// list is empty, so the next id is always max+1.
func MaxSessionID(sessions []Session) int {
	maxID := -1
	for _, s := range sessions {
		if s.ID > maxID {
			maxID = s.ID
		}
	}
	return maxID
}

// IsLocalOnly reports whether a session was never persisted remotely: it
// still carries the placeholder name and holds no messages. Such sessions
// are removed without a backend round trip.
func (s *Session) IsLocalOnly() bool {
	return s.Name == DefaultSessionName && len(s.Messages) == 0
}
