package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"superchat/client/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

// SaveSession upserts the session row and replaces its message snapshot in
// one transaction, so a crash mid-write never leaves a half-updated
// transcript in the cache.
func (r *sqliteRepository) SaveSession(ctx context.Context, session *model.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO sessions (sid, name, date) VALUES (?, ?, ?)
		ON CONFLICT(sid) DO UPDATE SET name = excluded.name
	`
	if _, err := tx.ExecContext(ctx, upsert, session.ID, session.Name, session.Date); err != nil {
		return fmt.Errorf("could not upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE sid = ?", session.ID); err != nil {
		return fmt.Errorf("could not clear message snapshot: %w", err)
	}

	insert := `
		INSERT INTO messages (id, sid, position, sender, text, query_type, attached_files)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, msg := range session.Messages {
		queryType, files, err := encodeNested(msg)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert,
			msg.ID, session.ID, i, string(msg.Sender), msg.Text, queryType, files,
		); err != nil {
			return fmt.Errorf("could not insert message snapshot: %w", err)
		}
	}

	return tx.Commit()
}

func (r *sqliteRepository) DeleteSession(ctx context.Context, sid int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE sid = ?", sid)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	// ON DELETE CASCADE only fires with foreign keys enabled, so clear the
	// snapshot explicitly as well.
	_, err = r.db.ExecContext(ctx, "DELETE FROM messages WHERE sid = ?", sid)
	return err
}

// LoadSessions returns every cached session in sid order with messages in
// snapshot position order. Sessions with undecodable nested fields keep
// going with the fields dropped, same policy as the history parser.
func (r *sqliteRepository) LoadSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT sid, name, date FROM sessions ORDER BY sid ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.Name, &s.Date); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		messages, err := r.loadMessages(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Messages = messages
	}
	return sessions, nil
}

func (r *sqliteRepository) loadMessages(ctx context.Context, sid int) ([]model.Message, error) {
	query := `
		SELECT id, sender, text, query_type, attached_files
		FROM messages
		WHERE sid = ?
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, sid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var sender string
		var queryType, files sql.NullString
		if err := rows.Scan(&msg.ID, &sender, &msg.Text, &queryType, &files); err != nil {
			return nil, err
		}
		msg.Sender = model.Sender(sender)
		if queryType.Valid {
			msg.Query = model.ParseQueryType(queryType.String)
		}
		if files.Valid && files.String != "" {
			var attached []string
			if err := json.Unmarshal([]byte(files.String), &attached); err == nil {
				msg.AttachedFiles = attached
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func encodeNested(msg model.Message) (queryType string, files string, err error) {
	if !msg.Query.IsZero() {
		encoded, err := json.Marshal(msg.Query)
		if err != nil {
			return "", "", fmt.Errorf("could not marshal query type: %w", err)
		}
		queryType = string(encoded)
	}
	if len(msg.AttachedFiles) > 0 {
		encoded, err := json.Marshal(msg.AttachedFiles)
		if err != nil {
			return "", "", fmt.Errorf("could not marshal attached files: %w", err)
		}
		files = string(encoded)
	}
	return queryType, files, nil
}
