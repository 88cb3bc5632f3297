// Package bootstrap provides dependency initialization for the audio downloader.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/maauso/audiofetch-api/internal/config"
	"github.com/maauso/audiofetch-api/internal/download"
	"github.com/maauso/audiofetch-api/internal/extractor"
	"github.com/maauso/audiofetch-api/internal/media"
	"github.com/maauso/audiofetch-api/internal/pool"
	"github.com/maauso/audiofetch-api/internal/status"
	"github.com/maauso/audiofetch-api/internal/storage"
)

const mongoConnectTimeout = 10 * time.Second

// Dependencies holds all initialized dependencies and owns their shutdown.
type Dependencies struct {
	Downloads *download.Service
	Statuses  status.Repository

	logger     *slog.Logger
	pool       *pool.Pool
	registry   download.Registry
	mongo      *status.MongoRepository
	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// NewDependencies creates everything the HTTP service needs: the download
// stack with the configured registry and the MongoDB status log.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	registry, err := initRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	deps, err := newDownloadDependencies(cfg, logger, registry, cfg.FileTTL())
	if err != nil {
		closeRegistry(registry)
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	mongoRepo, err := status.ConnectMongo(connectCtx, cfg.MongoURL, cfg.DBName, cfg.StatusCollection)
	if err != nil {
		closeRegistry(registry)
		return nil, fmt.Errorf("create status repository: %w", err)
	}
	logger.Info("status log configured",
		slog.String("db_name", cfg.DBName),
		slog.String("collection", cfg.StatusCollection),
	)

	deps.mongo = mongoRepo
	deps.Statuses = mongoRepo
	return deps, nil
}

// NewFetchDependencies creates the download stack for one-shot CLI use:
// an in-memory registry, no status log and no expiry.
func NewFetchDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps, err := newDownloadDependencies(cfg, logger, download.NewMemoryRegistry(), 0)
	if err != nil {
		return nil, err
	}
	deps.Statuses = status.NewMemoryRepository()
	return deps, nil
}

func newDownloadDependencies(cfg *config.Config, logger *slog.Logger, registry download.Registry, ttl time.Duration) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	ext := initExtractor(cfg, logger)
	p := pool.New(cfg.MaxConcurrentDownloads)

	svc := download.NewService(store, ext, p, registry, logger,
		download.WithDownloadTimeout(cfg.DownloadTimeout()),
		download.WithFileTTL(ttl),
	)

	return &Dependencies{
		Downloads: svc,
		logger:    logger,
		pool:      p,
		registry:  registry,
	}, nil
}

// StartReaper runs the expired-file sweep in the background until Close.
func (d *Dependencies) StartReaper(interval time.Duration) {
	if d.stopReaper != nil || interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.stopReaper = cancel
	d.reaperDone = make(chan struct{})

	go func() {
		defer close(d.reaperDone)
		d.Downloads.RunReaper(ctx, interval)
	}()
	d.logger.Info("file reaper started", slog.Duration("interval", interval))
}

// HealthCheck pings the status log database, if any.
func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.mongo == nil {
		return nil
	}
	return d.mongo.Ping(ctx)
}

// Close shuts down in dependency order: stop the reaper, drain in-flight
// downloads, close the registry, then disconnect from MongoDB.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error

	if d.stopReaper != nil {
		d.stopReaper()
		select {
		case <-d.reaperDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("stop reaper: %w", ctx.Err()))
		}
	}

	if err := d.pool.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if c, ok := d.registry.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
	}

	if d.mongo != nil {
		if err := d.mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
		}
	}

	return errors.Join(errs...)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", localStore.Root()),
	)
	return localStore, nil
}

// initExtractor picks the extraction backend.
func initExtractor(cfg *config.Config, logger *slog.Logger) extractor.Extractor {
	if cfg.Extractor == config.ExtractorNative {
		logger.Info("native extractor configured", slog.String("ffmpeg", cfg.FFmpegPath))
		return extractor.NewNative(media.NewFFmpegProcessor(cfg.FFmpegPath))
	}

	logger.Info("yt-dlp extractor configured", slog.String("yt_dlp", cfg.YtDlpPath))
	var opts []extractor.YtDlpOption
	if cfg.FFmpegPath != "" && cfg.FFmpegPath != "ffmpeg" {
		opts = append(opts, extractor.WithFFmpegLocation(cfg.FFmpegPath))
	}
	return extractor.NewYtDlp(cfg.YtDlpPath, opts...)
}

// initRegistry opens the file token registry.
func initRegistry(cfg *config.Config, logger *slog.Logger) (download.Registry, error) {
	if cfg.RegistryDriver == config.RegistryMemory {
		logger.Info("in-memory file registry configured")
		return download.NewMemoryRegistry(), nil
	}

	reg, err := download.OpenSQLiteRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("open file registry: %w", err)
	}
	logger.Info("sqlite file registry configured", slog.String("path", cfg.RegistryPath))
	return reg, nil
}

func closeRegistry(r download.Registry) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}
