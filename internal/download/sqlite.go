package download

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteRegistry implements Registry.
var _ Registry = (*SQLiteRegistry)(nil)

// SQLiteRegistry is a Registry backed by a SQLite file, so issued tokens and
// their expiry survive restarts and the reaper can clean up after a crash.
type SQLiteRegistry struct {
	db *sql.DB
}

var registryMigrations = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		title TEXT NOT NULL,
		format TEXT NOT NULL,
		workspace_id TEXT NOT NULL,
		workspace_dir TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_expires_at ON files(expires_at)`,
}

// OpenSQLiteRegistry opens (creating if needed) the registry database at path
// and runs its migrations.
func OpenSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	r := &SQLiteRegistry{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRegistry) migrate() error {
	for i, migration := range registryMigrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("registry migration %d failed: %w", i, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// Save inserts or replaces an entry.
func (r *SQLiteRegistry) Save(ctx context.Context, e *FileEntry) error {
	query := `
		INSERT INTO files (id, path, title, format, workspace_id, workspace_dir, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			format = excluded.format,
			workspace_id = excluded.workspace_id,
			workspace_dir = excluded.workspace_dir,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Path, e.Title, string(e.Format), e.WorkspaceID, e.WorkspaceDir,
		toUnixNano(e.CreatedAt), toUnixNano(e.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save file entry: %w", err)
	}
	return nil
}

// FindByID retrieves an entry by token.
func (r *SQLiteRegistry) FindByID(ctx context.Context, id string) (*FileEntry, error) {
	query := `
		SELECT id, path, title, format, workspace_id, workspace_dir, created_at, expires_at
		FROM files WHERE id = ?
	`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file entry: %w", err)
	}
	return entry, nil
}

// ListExpired returns entries with a non-zero expiry at or before t.
func (r *SQLiteRegistry) ListExpired(ctx context.Context, t time.Time) ([]*FileEntry, error) {
	query := `
		SELECT id, path, title, format, workspace_id, workspace_dir, created_at, expires_at
		FROM files
		WHERE expires_at > 0 AND expires_at <= ?
		ORDER BY expires_at
	`
	rows, err := r.db.QueryContext(ctx, query, toUnixNano(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list expired files: %w", err)
	}
	defer rows.Close()

	var results []*FileEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file entry: %w", err)
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// Delete removes an entry.
func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete file entry: %w", err)
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*FileEntry, error) {
	var (
		e                  FileEntry
		format             string
		created, expiresAt int64
	)
	if err := row.Scan(&e.ID, &e.Path, &e.Title, &format, &e.WorkspaceID, &e.WorkspaceDir, &created, &expiresAt); err != nil {
		return nil, err
	}
	e.Format = Format(format)
	e.CreatedAt = fromUnixNano(created)
	e.ExpiresAt = fromUnixNano(expiresAt)
	return &e, nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
