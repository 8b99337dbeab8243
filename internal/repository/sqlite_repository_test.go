package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superchat/client/internal/model"
	"superchat/client/internal/repository"
)

func setupRepo(t *testing.T) (repository.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewSQLiteRepository(db), mockDB
}

func TestSQLiteRepository_SaveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the session and its message snapshot in one transaction", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		session := &model.Session{
			ID:   3,
			Name: "quarterly numbers",
			Date: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
			Messages: []model.Message{
				{ID: 100, Text: "sum it", Sender: model.SenderUser,
					Query:         model.QueryType{Name: model.QueryTables},
					AttachedFiles: []string{"report.xlsx"}},
				{ID: 101, Text: "42", Sender: model.SenderAssistant},
			},
		}

		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO sessions").
			WithArgs(3, "quarterly numbers", session.Date).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mockDB.ExpectExec("DELETE FROM messages").
			WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mockDB.ExpectExec("INSERT INTO messages").
			WithArgs(int64(100), 3, 0, "user", "sum it", `{"name":"QueryTables"}`, `["report.xlsx"]`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mockDB.ExpectExec("INSERT INTO messages").
			WithArgs(int64(101), 3, 1, "assistant", "42", "", "").
			WillReturnResult(sqlmock.NewResult(2, 1))
		mockDB.ExpectCommit()

		err := repo.SaveSession(ctx, session)

		assert.NoError(t, err)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("rolls back when an insert fails", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		session := &model.Session{ID: 1, Name: "x", Date: time.Now()}

		mockDB.ExpectBegin()
		mockDB.ExpectExec("INSERT INTO sessions").
			WillReturnError(assert.AnError)
		mockDB.ExpectRollback()

		err := repo.SaveSession(ctx, session)

		assert.Error(t, err)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestSQLiteRepository_DeleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the row and its snapshot", func(t *testing.T) {
		repo, mockDB := setupRepo(t)

		mockDB.ExpectExec("DELETE FROM sessions").
			WithArgs(2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.ExpectExec("DELETE FROM messages").
			WithArgs(2).
			WillReturnResult(sqlmock.NewResult(0, 3))

		assert.NoError(t, repo.DeleteSession(ctx, 2))
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("unknown sid", func(t *testing.T) {
		repo, mockDB := setupRepo(t)

		mockDB.ExpectExec("DELETE FROM sessions").
			WithArgs(9).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteSession(ctx, 9)

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestSQLiteRepository_LoadSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("restores sessions with their snapshots", func(t *testing.T) {
		repo, mockDB := setupRepo(t)
		date := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

		mockDB.ExpectQuery("SELECT sid, name, date FROM sessions").
			WillReturnRows(sqlmock.NewRows([]string{"sid", "name", "date"}).
				AddRow(0, "first", date).
				AddRow(1, "second", date))
		mockDB.ExpectQuery("SELECT id, sender, text, query_type, attached_files").
			WithArgs(0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sender", "text", "query_type", "attached_files"}).
				AddRow(100, "user", "hello", `{"name":"Generic"}`, `["a.pdf"]`).
				AddRow(101, "assistant", "hi", "", ""))
		mockDB.ExpectQuery("SELECT id, sender, text, query_type, attached_files").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sender", "text", "query_type", "attached_files"}))

		sessions, err := repo.LoadSessions(ctx)

		require.NoError(t, err)
		require.Len(t, sessions, 2)
		require.Len(t, sessions[0].Messages, 2)
		assert.Equal(t, model.QueryGeneric, sessions[0].Messages[0].Query.Name)
		assert.Equal(t, []string{"a.pdf"}, sessions[0].Messages[0].AttachedFiles)
		assert.Empty(t, sessions[1].Messages)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}
