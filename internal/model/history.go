package model

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// The backend persists sessions with nested JSON-encoded fields: the
// attached file list and the query type arrive as JSON strings inside the
// JSON document. Parsing is deliberately forgiving; a malformed nested
// field degrades to a usable fallback instead of failing the whole load.

type persistedMessage struct {
	Timestamp     int64  `json:"timestamp"`
	Text          string `json:"text"`
	Sender        string `json:"sender"`
	AttachedFiles string `json:"attached_files"`
	QueryType     string `json:"query_type"`
}

type persistedSession struct {
	SID      int                `json:"sid"`
	Name     string             `json:"name"`
	Date     string             `json:"date"`
	Messages []persistedMessage `json:"messages"`
}

// ParseSessions decodes the get_chat_history payload into Session values,
// in the order received (not resorted by id). Only a malformed top-level
// document is an error; per-field damage is logged and repaired.
func ParseSessions(data []byte) ([]Session, error) {
	var persisted []persistedSession
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, fmt.Errorf("could not decode chat history: %w", err)
	}

	sessions := make([]Session, 0, len(persisted))
	for _, ps := range persisted {
		s := Session{
			ID:       ps.SID,
			Name:     ps.Name,
			Date:     parseSessionDate(ps.Date),
			Messages: make([]Message, 0, len(ps.Messages)),
		}
		for _, pm := range ps.Messages {
			s.Messages = append(s.Messages, Message{
				ID:            pm.Timestamp,
				Text:          pm.Text,
				Sender:        Sender(pm.Sender),
				Query:         ParseQueryType(pm.QueryType),
				AttachedFiles: parseAttachedFiles(pm.AttachedFiles),
			})
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// ParseQueryType decodes a JSON-encoded query type. Malformed input falls
// back to a name-only wrapper around the raw string so the message is still
// displayable and its workflow association is preserved best-effort.
func ParseQueryType(raw string) QueryType {
	if raw == "" {
		return QueryType{}
	}
	var q QueryType
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		slog.Warn("Malformed query type in history, keeping raw name", "raw", raw, "error", err)
		return QueryType{Name: QueryKind(raw)}
	}
	return q
}

func parseAttachedFiles(raw string) []string {
	if raw == "" {
		return nil
	}
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		slog.Warn("Malformed attached file list in history, dropping", "raw", raw, "error", err)
		return nil
	}
	return files
}

func parseSessionDate(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
