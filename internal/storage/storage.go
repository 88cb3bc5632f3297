// Package storage provides the per-request workspace lifecycle and optional
// publishing of finished files. It defines the Storage interface (port) and
// implementations for local disk and S3.
package storage

import (
	"context"
	"io"
)

// Workspace is an exclusively owned scratch directory for one download.
type Workspace struct {
	// ID is the unique name of the workspace directory.
	ID string
	// Dir is the absolute path of the workspace directory.
	Dir string
}

// Storage defines the interface for workspace management and publishing.
type Storage interface {
	// Acquire creates a new, uniquely named, empty workspace directory.
	Acquire(ctx context.Context) (Workspace, error)

	// Release removes the workspace tree unless keepFiles is true, in which
	// case the directory is left in place and its lifecycle moves to the caller.
	Release(ctx context.Context, ws Workspace, keepFiles bool) error

	// Publish uploads data to object storage and returns its public URL.
	// Returns ErrS3NotConfigured if publishing is not configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
