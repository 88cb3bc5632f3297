package download

import (
	"context"
	"errors"
	"time"
)

// ErrFileNotFound is returned when a file token resolves to nothing.
var ErrFileNotFound = errors.New("file not found")

// Registry defines the interface for the server-side file token registry.
// It acts as a port in the hexagonal architecture pattern.
type Registry interface {
	// Save persists an entry. An existing entry with the same ID is replaced.
	Save(ctx context.Context, entry *FileEntry) error

	// FindByID retrieves an entry by token.
	// Returns ErrFileNotFound if the entry does not exist.
	FindByID(ctx context.Context, id string) (*FileEntry, error)

	// ListExpired returns entries whose non-zero ExpiresAt is at or before t.
	ListExpired(ctx context.Context, t time.Time) ([]*FileEntry, error)

	// Delete removes an entry.
	// Returns ErrFileNotFound if the entry does not exist.
	Delete(ctx context.Context, id string) error
}
