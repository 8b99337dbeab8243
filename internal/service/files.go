package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	app_errors "superchat/client/internal/errors"
)

// Upload statuses. These are human-readable state tags rather than a strict
// enum: intermediate status text is shown verbatim and backend failures are
// reported through the same field.
const (
	UploadCompleted     = "completed"
	UploadStarting      = "start-uploading"
	UploadInProgress    = "uploading"
	UploadDone          = "uploaded"
	UploadStopping      = "stopping"
	RemovalInProgress   = "removing"
	RemovalDone         = "removed"
	missingSourceMarker = "[SOURCE DELETED]"
)

// Extensions the knowledge base accepts.
var allowedUploadExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".pptx": true,
	".xlsx": true,
	".csv":  true,
}

// FileEntry is one row of the knowledge-base file table. Path is the
// stable key the backend knows the file by; Location is the on-disk
// source, replaced by a placeholder when that source is gone.
type FileEntry struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Location     string `json:"location"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
	Status       string `json:"status"`
	Selected     bool   `json:"selected"`
}

// FileCoordinator tracks the knowledge-base file table, which files are
// selected for the next request, and the state of in-progress upload and
// removal operations.
type FileCoordinator struct {
	mu sync.Mutex

	client fileBackend
	ready  *Readiness

	files       []FileEntry
	filesLoaded bool
	useAllFiles bool

	status        string
	statusMessage string
	uploading     bool
	// canceling blocks a late progress event from re-asserting the
	// uploading status after cancellation has been requested.
	canceling     bool
	batchID       string
	uploadingFile string
	uploadedCount int
	lastBatchSize int
}

// fileBackend is the slice of the backend surface the coordinator needs.
type fileBackend interface {
	GetFileList(ctx context.Context) ([]string, error)
	UploadFiles(ctx context.Context, paths []string) error
	StopUpload(ctx context.Context) error
	RemoveFiles(ctx context.Context, paths []string) error
}

func NewFileCoordinator(client fileBackend, ready *Readiness) *FileCoordinator {
	return &FileCoordinator{
		client: client,
		ready:  ready,
		status: UploadCompleted,
	}
}

// Files returns a copy of the current file table.
func (f *FileCoordinator) Files() []FileEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.files)
}

// Status returns the current operation status tag and its message text.
func (f *FileCoordinator) Status() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.statusMessage
}

// Loaded reports whether the table has been fetched at least once.
func (f *FileCoordinator) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filesLoaded
}

// Progress reports the file currently uploading and how many finished.
func (f *FileCoordinator) Progress() (string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadingFile, f.uploadedCount
}

// SetUseAllFiles toggles the mode where every refresh selects the whole
// file list, bypassing manual selection.
func (f *FileCoordinator) SetUseAllFiles(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.useAllFiles = on
	if on {
		for i := range f.files {
			f.files[i].Selected = true
		}
	}
}

// RefreshTable reloads the file table from the backend. Manual selection is
// reset; in use-all-files mode the fresh list is auto-selected in full.
func (f *FileCoordinator) RefreshTable(ctx context.Context) error {
	paths, err := f.client.GetFileList(ctx)
	if err != nil {
		return fmt.Errorf("refreshing file table: %w", err)
	}

	entries := make([]FileEntry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, statEntry(p))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = entries
	f.filesLoaded = true
	if f.useAllFiles {
		for i := range f.files {
			f.files[i].Selected = true
		}
	}
	return nil
}

// statEntry fills in size and modification time from the local filesystem.
// Files whose source no longer exists keep a placeholder location so the
// row stays visible in the table.
func statEntry(path string) FileEntry {
	entry := FileEntry{
		Name:     filepath.Base(path),
		Path:     path,
		Location: path,
		Status:   "ready",
	}
	info, err := os.Stat(path)
	if err != nil {
		entry.Location = missingSourceMarker
		return entry
	}
	entry.Size = info.Size()
	entry.LastModified = info.ModTime().Format(time.RFC3339)
	return entry
}

// Select replaces the current selection with the named files, enforcing
// limit when it is positive. A select-all action that reaches the limit
// toggles back to an empty selection; fresh uploads and use-all-files
// ordering reverse the list first so the newest files occupy the kept slots.
func (f *FileCoordinator) Select(names []string, limit int, selectAll, freshUpload bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	picked := slices.Clone(names)
	if limit > 0 && len(picked) >= limit {
		if selectAll && !freshUpload && !f.useAllFiles {
			picked = nil
		} else {
			if freshUpload || f.useAllFiles {
				slices.Reverse(picked)
			}
			picked = picked[:limit]
		}
	}

	chosen := make(map[string]bool, len(picked))
	for _, n := range picked {
		chosen[n] = true
	}
	matched := 0
	for i := range f.files {
		f.files[i].Selected = chosen[f.files[i].Name]
		if f.files[i].Selected {
			matched++
		}
	}
	if matched < len(picked) {
		return fmt.Errorf("%w: %d selected files are not in the table", app_errors.ErrValidation, len(picked)-matched)
	}
	return nil
}

// SelectedPaths lists the paths of the currently selected files.
func (f *FileCoordinator) SelectedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, entry := range f.files {
		if entry.Selected {
			out = append(out, entry.Path)
		}
	}
	return out
}

// UploadFiles validates extensions and starts a backend upload batch.
// Readiness is suspended for the duration of the call and always restored.
func (f *FileCoordinator) UploadFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("%w: no files to upload", app_errors.ErrValidation)
	}
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		if !allowedUploadExtensions[ext] {
			return fmt.Errorf("%w: unsupported file type %q", app_errors.ErrValidation, ext)
		}
	}

	f.mu.Lock()
	if f.uploading {
		f.mu.Unlock()
		return app_errors.ErrConflict
	}
	f.uploading = true
	f.canceling = false
	f.batchID = uuid.New().String()
	f.lastBatchSize = len(paths)
	f.uploadedCount = 0
	f.setStatusLocked(UploadStarting, fmt.Sprintf("Uploading %d files", len(paths)))
	batch := f.batchID
	f.mu.Unlock()

	f.ready.SetSettingsApplied(false)
	defer f.ready.SetSettingsApplied(true)

	slog.Info("Starting upload batch", "batch", batch, "files", len(paths))
	if err := f.client.UploadFiles(ctx, paths); err != nil {
		f.mu.Lock()
		f.uploading = false
		f.setStatusLocked(UploadCompleted, fmt.Sprintf("Upload failed: %v", err))
		f.mu.Unlock()
		return nil
	}
	return nil
}

// CancelUpload requests cancellation of the running batch. The guard flag
// is set before the backend call so that progress events arriving in the
// window cannot flip the status back.
func (f *FileCoordinator) CancelUpload(ctx context.Context) {
	f.mu.Lock()
	if !f.uploading {
		f.mu.Unlock()
		return
	}
	f.canceling = true
	f.setStatusLocked(UploadStopping, "Stopping upload")
	f.mu.Unlock()

	if err := f.client.StopUpload(ctx); err != nil {
		slog.Warn("Upload cancellation call failed", "error", err)
	}

	f.mu.Lock()
	f.uploading = false
	f.canceling = false
	f.setStatusLocked(UploadCompleted, "Upload canceled")
	f.mu.Unlock()
}

// RemoveSelected removes the selected ready files from the knowledge base.
func (f *FileCoordinator) RemoveSelected(ctx context.Context) error {
	f.mu.Lock()
	var paths []string
	for i := range f.files {
		if f.files[i].Selected && f.files[i].Status == "ready" {
			paths = append(paths, f.files[i].Path)
		}
	}
	if len(paths) == 0 {
		f.mu.Unlock()
		return fmt.Errorf("%w: nothing selected for removal", app_errors.ErrValidation)
	}
	f.setStatusLocked(RemovalInProgress, fmt.Sprintf("Removing %d files", len(paths)))
	f.mu.Unlock()

	f.ready.SetSettingsApplied(false)
	defer f.ready.SetSettingsApplied(true)

	if err := f.client.RemoveFiles(ctx, paths); err != nil {
		f.mu.Lock()
		f.setStatusLocked(UploadCompleted, fmt.Sprintf("Removal failed: %v", err))
		f.mu.Unlock()
		return nil
	}

	f.mu.Lock()
	f.files = slices.DeleteFunc(f.files, func(e FileEntry) bool {
		return slices.Contains(paths, e.Path)
	})
	f.setStatusLocked(RemovalDone, fmt.Sprintf("Removed %d files", len(paths)))
	f.mu.Unlock()
	return nil
}

// ApplyUploadProgress handles an upload-progress event. A progress event
// that races with a cancellation request is dropped so it cannot re-assert
// the uploading status.
func (f *FileCoordinator) ApplyUploadProgress(filesUploaded int, currentFile string, percent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.canceling || !f.uploading {
		return
	}
	f.uploadedCount = filesUploaded
	f.uploadingFile = currentFile
	f.setStatusLocked(UploadInProgress,
		fmt.Sprintf("Uploading %s (%d done, %d%%)", currentFile, filesUploaded, percent))
}

// ApplyUploadCompleted handles the upload-completed event. The payload is
// either a JSON array of uploaded file names or, on failure, a plain error
// string from the backend.
func (f *FileCoordinator) ApplyUploadCompleted(payload []byte) {
	var uploaded []string
	if err := json.Unmarshal(payload, &uploaded); err != nil {
		f.mu.Lock()
		f.uploading = false
		f.canceling = false
		f.setStatusLocked(UploadCompleted, strings.TrimSpace(string(payload)))
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploading = false
	f.canceling = false
	now := time.Now().Format(time.RFC3339)
	for _, name := range uploaded {
		idx := slices.IndexFunc(f.files, func(e FileEntry) bool { return e.Name == name })
		if idx >= 0 {
			f.files[idx].LastModified = now
			continue
		}
		f.files = append(f.files, FileEntry{Name: name, Path: name, Location: name, LastModified: now, Status: "ready"})
	}
	if len(uploaded) < f.lastBatchSize {
		f.setStatusLocked(UploadDone,
			fmt.Sprintf("Uploaded %d of %d files", len(uploaded), f.lastBatchSize))
		return
	}
	f.setStatusLocked(UploadDone, fmt.Sprintf("Uploaded %d files", len(uploaded)))
}

func (f *FileCoordinator) setStatusLocked(status, message string) {
	f.status = status
	f.statusMessage = message
	slog.Debug("File operation status", "status", status, "message", message)
}
