package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maauso/audiofetch-api/internal/download/id"
	"github.com/maauso/audiofetch-api/internal/extractor"
	"github.com/maauso/audiofetch-api/internal/pool"
	"github.com/maauso/audiofetch-api/internal/storage"
)

const (
	defaultDownloadTimeout = 10 * time.Minute
	defaultFileTTL         = time.Hour

	successMessage = "Download completed successfully"
	failurePrefix  = "Download failed: "
)

// errOutputMissing is reported when the extractor succeeded but nothing
// usable was left in the workspace.
var errOutputMissing = errors.New("no output file found in workspace")

// Runner executes blocking work off the request goroutine with bounded
// concurrency. *pool.Pool implements it.
type Runner interface {
	Do(ctx context.Context, task pool.Task) error
}

// Option configures a Service.
type Option func(*Service)

// WithDownloadTimeout bounds a single extraction run. Non-positive values are ignored.
func WithDownloadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithFileTTL sets how long finished files stay retrievable.
// Zero keeps files until they are discarded explicitly.
func WithFileTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates downloads and delivers their files.
//
// Dependencies:
//   - storage.Storage: workspace lifecycle and optional S3 publishing
//   - extractor.Extractor: the black box that produces the audio file
//   - Runner: bounded background pool
//   - Registry: token to file mapping
type Service struct {
	storage   storage.Storage
	extractor extractor.Extractor
	runner    Runner
	registry  Registry
	logger    *slog.Logger
	timeout   time.Duration
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new download Service.
func NewService(
	store storage.Storage,
	ext extractor.Extractor,
	runner Runner,
	registry Registry,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		storage:   store,
		extractor: ext,
		runner:    runner,
		registry:  registry,
		logger:    logger,
		timeout:   defaultDownloadTimeout,
		ttl:       defaultFileTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs one download.
//
// A *ValidationError is returned before any work is done. Failures of the
// extraction itself are reported as Result{Success: false}; a non-nil error
// for a validated request means the service could not run it at all.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ws, err := s.storage.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire workspace: %w", err)
	}

	log := s.logger.With(
		slog.String("workspace", ws.ID),
		slog.String("url", req.URL),
		slog.String("format", string(req.Format)),
		slog.String("quality", string(req.Quality)),
	)
	log.Info("download started")

	params := extractor.Params{
		URL:      req.URL,
		Format:   string(req.Format),
		Quality:  string(req.Quality),
		Selector: SelectorFor(req.Quality),
		WorkDir:  ws.Dir,
	}

	var (
		out     *extractor.Output
		started bool
	)
	err = s.runner.Do(ctx, func(taskCtx context.Context) (runErr error) {
		started = true
		defer func() {
			if r := recover(); r != nil {
				log.Error("extractor panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				out = nil
				runErr = &extractor.ExtractionError{Message: "extraction failed", Err: fmt.Errorf("panic: %v", r)}
			}
		}()

		// The extraction outlives the client connection but not the timeout.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(taskCtx), s.timeout)
		defer cancel()

		out, runErr = s.extractor.Extract(runCtx, params)
		return runErr
	})
	if err != nil && !started {
		s.discardWorkspace(ctx, ws, log)
		return nil, fmt.Errorf("schedule download: %w", err)
	}

	var path string
	if err == nil {
		if out == nil {
			out = &extractor.Output{}
		}
		path, err = locateOutput(ws.Dir, req.Format, out.Path)
	}
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		if cause := errors.Unwrap(err); cause != nil {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}
		log.Warn("download failed", attrs...)
		s.discardWorkspace(ctx, ws, log)
		return &Result{Success: false, Message: failurePrefix + err.Error()}, nil
	}

	entry := &FileEntry{
		ID:           id.Generate(),
		Path:         path,
		Title:        titleOrDefault(out.Title),
		Format:       req.Format,
		WorkspaceID:  ws.ID,
		WorkspaceDir: ws.Dir,
		CreatedAt:    s.now(),
	}
	if s.ttl > 0 {
		entry.ExpiresAt = entry.CreatedAt.Add(s.ttl)
	}

	if err := s.registry.Save(ctx, entry); err != nil {
		s.discardWorkspace(ctx, ws, log)
		return nil, fmt.Errorf("register file: %w", err)
	}

	result := &Result{
		Success:  true,
		Message:  successMessage,
		FileID:   entry.ID,
		FilePath: entry.Path,
		FileName: entry.FileName(),
		Title:    entry.Title,
	}

	if req.PushToS3 {
		result.URL = s.publish(ctx, entry, log)
	}

	log.Info("download completed",
		slog.String("file_id", entry.ID),
		slog.String("title", entry.Title),
	)
	return result, nil
}

// Resolve maps a token to its file. Unknown, expired or vanished files yield
// ErrFileNotFound. Resolve never mutates state.
func (s *Service) Resolve(ctx context.Context, fileID string) (*FileEntry, error) {
	if !id.Valid(fileID) {
		return nil, ErrFileNotFound
	}

	entry, err := s.registry.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if entry.Expired(s.now()) {
		return nil, ErrFileNotFound
	}

	info, err := os.Stat(entry.Path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, ErrFileNotFound
	}
	return entry, nil
}

// Discard deletes a file and its workspace, forgetting the token.
func (s *Service) Discard(ctx context.Context, fileID string) error {
	if !id.Valid(fileID) {
		return ErrFileNotFound
	}

	entry, err := s.registry.FindByID(ctx, fileID)
	if err != nil {
		return err
	}
	return s.evict(ctx, entry)
}

// Reap evicts every entry expired at the service clock and returns how many
// were removed. It keeps going past individual failures.
func (s *Service) Reap(ctx context.Context) (int, error) {
	expired, err := s.registry.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired files: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, entry := range expired {
		if err := s.evict(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("evict %s: %w", entry.ID, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// RunReaper calls Reap every interval until ctx is cancelled.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Reap(ctx)
			if err != nil {
				s.logger.Warn("reap failed", slog.String("error", err.Error()))
			}
			if n > 0 {
				s.logger.Info("reaped expired files", slog.Int("count", n))
			}
		}
	}
}

// evict releases the entry's workspace and then forgets the token.
// Workspaces outside the current scratch root, left by an earlier TEMP_DIR,
// are not removed; only the entry is dropped.
func (s *Service) evict(ctx context.Context, entry *FileEntry) error {
	err := s.storage.Release(ctx, entry.Workspace(), false)
	switch {
	case errors.Is(err, storage.ErrOutsideRoot):
		s.logger.Warn("workspace outside scratch root, dropping entry only",
			slog.String("file_id", entry.ID),
			slog.String("workspace", entry.WorkspaceID),
		)
	case err != nil:
		return err
	}
	if err := s.registry.Delete(ctx, entry.ID); err != nil && !errors.Is(err, ErrFileNotFound) {
		return err
	}
	s.logger.Debug("file evicted",
		slog.String("file_id", entry.ID),
		slog.String("workspace", entry.WorkspaceID),
	)
	return nil
}

// discardWorkspace is the best-effort cleanup after a failed download.
func (s *Service) discardWorkspace(ctx context.Context, ws storage.Workspace, log *slog.Logger) {
	if err := s.storage.Release(context.WithoutCancel(ctx), ws, false); err != nil {
		log.Debug("workspace cleanup failed", slog.String("error", err.Error()))
	}
}

// publish uploads the file to object storage. Failures are logged and leave
// the local result intact.
func (s *Service) publish(ctx context.Context, entry *FileEntry, log *slog.Logger) string {
	f, err := os.Open(entry.Path)
	if err != nil {
		log.Warn("failed to open file for publishing", slog.String("error", err.Error()))
		return ""
	}
	defer f.Close()

	key := fmt.Sprintf("audio/%s/%s", entry.ID, entry.FileName())
	url, err := s.storage.Publish(ctx, key, f)
	if err != nil {
		log.Warn("failed to publish file", slog.String("error", err.Error()))
		return ""
	}
	log.Info("file published", slog.String("url", url))
	return url
}

// locateOutput finds the produced file. A file in dir with the requested
// extension wins over the nominal path because the extractor's naming may
// diverge from the requested format.
func locateOutput(dir string, format Format, nominal string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan workspace: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	suffix := "." + string(format)
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			return filepath.Join(dir, name), nil
		}
	}

	if nominal != "" && filepath.Dir(filepath.Clean(nominal)) == filepath.Clean(dir) {
		if info, err := os.Stat(nominal); err == nil && info.Mode().IsRegular() {
			return nominal, nil
		}
	}
	return "", errOutputMissing
}

func titleOrDefault(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return "Unknown"
}
