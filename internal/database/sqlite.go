package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Import the sqlite3 driver.
)

// InitDB opens the local history cache and creates the schema. The cache
// mirrors backend-persisted sessions so recent history stays readable when
// the backend is unreachable; losing it is never fatal.
func InitDB(dataSourceName string) (*sql.DB, error) {
	dir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// WAL lets the snapshot writer run without blocking readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		slog.Warn("Failed to enable WAL mode for SQLite, continuing without it.", "error", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			sid INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			date DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER NOT NULL,
			sid INTEGER NOT NULL,
			position INTEGER NOT NULL,
			sender TEXT NOT NULL CHECK(sender IN ('user', 'assistant')),
			text TEXT NOT NULL,
			query_type TEXT,
			attached_files TEXT,
			PRIMARY KEY (sid, position),
			FOREIGN KEY (sid) REFERENCES sessions(sid) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_messages_sid ON messages(sid);
	`
	_, err := db.Exec(schema)
	return err
}
