package status

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps records in insertion order in memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Insert appends a copy of r.
func (m *MemoryRepository) Insert(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

// List returns copies of the first limit records.
func (m *MemoryRepository) List(_ context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := min(len(m.records), normalizeLimit(limit))
	out := make([]*Record, n)
	for i := range n {
		r := m.records[i]
		out[i] = &r
	}
	return out, nil
}
