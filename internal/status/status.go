// Package status implements the status log: an append-only list of client
// pings persisted to a document store.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps the number of records returned by List.
const DefaultListLimit = 1000

// ErrClientNameRequired is returned when a record has no client name.
var ErrClientNameRequired = errors.New("status: client name is required")

// Record is a single status check.
type Record struct {
	ID         string    `json:"id" bson:"id"`
	ClientName string    `json:"client_name" bson:"client_name"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// NewRecord creates a record with a fresh ID and the current UTC time.
func NewRecord(clientName string) (*Record, error) {
	if clientName == "" {
		return nil, ErrClientNameRequired
	}
	return &Record{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// Repository persists status records.
type Repository interface {
	// Insert appends a record.
	Insert(ctx context.Context, r *Record) error
	// List returns up to limit records in the store's natural order.
	// A non-positive limit means DefaultListLimit.
	List(ctx context.Context, limit int) ([]*Record, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
