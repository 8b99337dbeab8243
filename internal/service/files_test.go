package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "superchat/client/internal/errors"
	"superchat/client/internal/service"
)

func setupFiles(t *testing.T, client *stubClient) *service.FileCoordinator {
	t.Helper()
	files := service.NewFileCoordinator(client, readyAggregate())
	require.NoError(t, files.RefreshTable(context.Background()))
	return files
}

func tableClient(paths ...string) *stubClient {
	return &stubClient{
		getFileListFn: func(ctx context.Context) ([]string, error) {
			return paths, nil
		},
	}
}

func selectedNames(files *service.FileCoordinator) []string {
	var out []string
	for _, f := range files.Files() {
		if f.Selected {
			out = append(out, f.Name)
		}
	}
	return out
}

func TestFileCoordinator_Select(t *testing.T) {
	t.Run("plain selection under the limit", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf", "b.pdf", "c.pdf"))

		require.NoError(t, files.Select([]string{"a.pdf", "b.pdf"}, 3, false, false))

		assert.Equal(t, []string{"a.pdf", "b.pdf"}, selectedNames(files))
	})

	t.Run("manual selection over the limit keeps the first entries", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf", "b.pdf", "c.pdf"))

		require.NoError(t, files.Select([]string{"a.pdf", "b.pdf", "c.pdf"}, 2, false, false))

		assert.Equal(t, []string{"a.pdf", "b.pdf"}, selectedNames(files))
	})

	t.Run("select-all over the limit toggles back to empty", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf", "b.pdf", "c.pdf"))

		require.NoError(t, files.Select([]string{"a.pdf", "b.pdf", "c.pdf"}, 2, true, false))

		assert.Empty(t, selectedNames(files))
	})

	t.Run("select-all of exactly the limit also toggles back to empty", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf", "b.pdf"))

		require.NoError(t, files.Select([]string{"a.pdf", "b.pdf"}, 2, true, false))

		assert.Empty(t, selectedNames(files))
	})

	t.Run("manual selection of exactly the limit is kept", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf", "b.pdf", "c.pdf"))

		require.NoError(t, files.Select([]string{"a.pdf", "b.pdf"}, 2, false, false))

		assert.Equal(t, []string{"a.pdf", "b.pdf"}, selectedNames(files))
	})

	t.Run("fresh upload over the limit keeps the newest entries", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf", "b.pdf", "c.pdf"))

		require.NoError(t, files.Select([]string{"a.pdf", "b.pdf", "c.pdf"}, 2, true, true))

		assert.Equal(t, []string{"b.pdf", "c.pdf"}, selectedNames(files))
	})

	t.Run("unknown names are reported", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf"))

		err := files.Select([]string{"ghost.pdf"}, 0, false, false)

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}

func TestFileCoordinator_UseAllFiles(t *testing.T) {
	t.Run("refresh auto-selects the whole table", func(t *testing.T) {
		client := tableClient("a.pdf", "b.pdf")
		files := service.NewFileCoordinator(client, readyAggregate())
		files.SetUseAllFiles(true)

		require.NoError(t, files.RefreshTable(context.Background()))

		assert.True(t, files.Loaded())
		assert.Equal(t, []string{"a.pdf", "b.pdf"}, selectedNames(files))
	})
}

func TestFileCoordinator_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unsupported extensions before any backend call", func(t *testing.T) {
		client := &stubClient{}
		files := setupFiles(t, client)

		err := files.UploadFiles(ctx, []string{"report.pdf", "virus.exe"})

		assert.ErrorIs(t, err, app_errors.ErrValidation)
		status, _ := files.Status()
		assert.Equal(t, service.UploadCompleted, status)
	})

	t.Run("progress events advance the status", func(t *testing.T) {
		files := setupFiles(t, &stubClient{})
		require.NoError(t, files.UploadFiles(ctx, []string{"a.pdf", "b.pdf"}))

		files.ApplyUploadProgress(1, "b.pdf", 40)

		status, message := files.Status()
		assert.Equal(t, service.UploadInProgress, status)
		assert.Contains(t, message, "b.pdf")
		current, done := files.Progress()
		assert.Equal(t, "b.pdf", current)
		assert.Equal(t, 1, done)
	})

	t.Run("late progress event can not override a cancellation", func(t *testing.T) {
		files := setupFiles(t, &stubClient{})
		require.NoError(t, files.UploadFiles(ctx, []string{"a.pdf"}))

		files.CancelUpload(ctx)
		files.ApplyUploadProgress(0, "a.pdf", 10)

		status, _ := files.Status()
		assert.Equal(t, service.UploadCompleted, status)
	})

	t.Run("cancel without a running upload is a no-op", func(t *testing.T) {
		client := &stubClient{}
		files := setupFiles(t, client)

		files.CancelUpload(ctx)

		status, _ := files.Status()
		assert.Equal(t, service.UploadCompleted, status)
	})

	t.Run("completion payload with the file list marks success", func(t *testing.T) {
		files := setupFiles(t, tableClient())
		require.NoError(t, files.UploadFiles(ctx, []string{"a.pdf", "b.pdf"}))

		files.ApplyUploadCompleted([]byte(`["a.pdf", "b.pdf"]`))

		status, message := files.Status()
		assert.Equal(t, service.UploadDone, status)
		assert.Contains(t, message, "2")
		assert.Len(t, files.Files(), 2)
	})

	t.Run("partial completion is called out", func(t *testing.T) {
		files := setupFiles(t, tableClient())
		require.NoError(t, files.UploadFiles(ctx, []string{"a.pdf", "b.pdf"}))

		files.ApplyUploadCompleted([]byte(`["a.pdf"]`))

		status, message := files.Status()
		assert.Equal(t, service.UploadDone, status)
		assert.Contains(t, message, "1 of 2")
	})

	t.Run("error string payload surfaces in the status message", func(t *testing.T) {
		files := setupFiles(t, tableClient())
		require.NoError(t, files.UploadFiles(ctx, []string{"a.pdf"}))

		files.ApplyUploadCompleted([]byte("disk full"))

		status, message := files.Status()
		assert.Equal(t, service.UploadCompleted, status)
		assert.Equal(t, "disk full", message)
	})
}

func TestFileCoordinator_RemoveSelected(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only selected rows", func(t *testing.T) {
		var removed []string
		client := tableClient("a.pdf", "b.pdf")
		client.removeFilesFn = func(ctx context.Context, paths []string) error {
			removed = paths
			return nil
		}
		files := setupFiles(t, client)
		require.NoError(t, files.Select([]string{"a.pdf"}, 0, false, false))

		require.NoError(t, files.RemoveSelected(ctx))

		assert.Equal(t, []string{"a.pdf"}, removed)
		require.Len(t, files.Files(), 1)
		assert.Equal(t, "b.pdf", files.Files()[0].Name)
		status, _ := files.Status()
		assert.Equal(t, service.RemovalDone, status)
	})

	t.Run("nothing selected", func(t *testing.T) {
		files := setupFiles(t, tableClient("a.pdf"))

		err := files.RemoveSelected(ctx)

		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}
