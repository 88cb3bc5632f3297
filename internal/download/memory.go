package download

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryRegistry implements Registry.
var _ Registry = (*MemoryRegistry)(nil)

// MemoryRegistry is an in-memory implementation of Registry.
// It uses a map with RWMutex for thread-safe access.
// Entries are lost on restart; use SQLiteRegistry to keep tokens valid across restarts.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*FileEntry
}

// NewMemoryRegistry creates a new in-memory file registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]*FileEntry),
	}
}

// Save stores a clone to avoid external mutations.
func (r *MemoryRegistry) Save(_ context.Context, entry *FileEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry.Clone()
	return nil
}

// FindByID returns a clone to prevent external mutations.
func (r *MemoryRegistry) FindByID(_ context.Context, id string) (*FileEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	return entry.Clone(), nil
}

// ListExpired returns clones of every entry expired at t.
func (r *MemoryRegistry) ListExpired(_ context.Context, t time.Time) ([]*FileEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*FileEntry
	for _, entry := range r.entries {
		if entry.Expired(t) {
			result = append(result, entry.Clone())
		}
	}
	return result, nil
}

// Delete removes an entry from the registry.
func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return ErrFileNotFound
	}
	delete(r.entries, id)
	return nil
}
