package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Static errors for local storage.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrOutsideRoot is returned when a workspace does not live under the scratch root.
	ErrOutsideRoot = errors.New("workspace is outside the scratch root")
)

const workspacePrefix = "ws-"

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// Every workspace is a directory directly below root.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates a new LocalStorage instance.
// If root is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "audiofetch")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch root: %w", err)
	}

	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}

	return &LocalStorage{root: abs}, nil
}

// Root returns the scratch directory path.
func (s *LocalStorage) Root() string {
	return s.root
}

// Acquire creates a new workspace named ws-<uuid> under the scratch root.
func (s *LocalStorage) Acquire(ctx context.Context) (Workspace, error) {
	select {
	case <-ctx.Done():
		return Workspace{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	id := workspacePrefix + uuid.NewString()
	dir := filepath.Join(s.root, id)

	// Mkdir (not MkdirAll) so an existing directory is never shared.
	if err := os.Mkdir(dir, 0750); err != nil {
		return Workspace{}, fmt.Errorf("create workspace: %w", err)
	}

	return Workspace{ID: id, Dir: dir}, nil
}

// Release removes the workspace tree unless keepFiles is set.
// A workspace that is already gone is not an error.
func (s *LocalStorage) Release(_ context.Context, ws Workspace, keepFiles bool) error {
	if keepFiles {
		return nil
	}

	if !s.contains(ws.Dir) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, ws.Dir)
	}

	if err := os.RemoveAll(ws.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", ws.ID, err)
	}
	return nil
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// contains reports whether dir is a direct child of the scratch root.
func (s *LocalStorage) contains(dir string) bool {
	clean := filepath.Clean(dir)
	return filepath.Dir(clean) == s.root && strings.HasPrefix(filepath.Base(clean), workspacePrefix)
}
