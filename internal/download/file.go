package download

import (
	"path/filepath"
	"time"

	"github.com/maauso/audiofetch-api/internal/storage"
)

// FileEntry maps a server-issued token to a finished file and the workspace
// that owns it.
type FileEntry struct {
	// ID is the opaque token handed to clients.
	ID string
	// Path is the absolute path of the audio file.
	Path string
	// Title is the media title reported by the extractor.
	Title string
	// Format is the audio format of the file.
	Format Format
	// WorkspaceID and WorkspaceDir identify the directory to release on expiry.
	WorkspaceID  string
	WorkspaceDir string
	// CreatedAt is when the file was registered.
	CreatedAt time.Time
	// ExpiresAt is when the file becomes eligible for reaping.
	// The zero value means the entry never expires.
	ExpiresAt time.Time
}

// FileName returns the base name of the file.
func (e *FileEntry) FileName() string {
	return filepath.Base(e.Path)
}

// Workspace returns the workspace that owns the file.
func (e *FileEntry) Workspace() storage.Workspace {
	return storage.Workspace{ID: e.WorkspaceID, Dir: e.WorkspaceDir}
}

// Expired reports whether the entry has passed its expiry at now.
func (e *FileEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Clone creates a copy of the entry for safe reads.
func (e *FileEntry) Clone() *FileEntry {
	c := *e
	return &c
}
