package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiofetch-api/internal/config"
	"github.com/maauso/audiofetch-api/internal/download"
	"github.com/maauso/audiofetch-api/internal/extractor"
	"github.com/maauso/audiofetch-api/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		TempDir:                filepath.Join(dir, "scratch"),
		MaxConcurrentDownloads: 3,
		DownloadTimeoutSec:     60,
		FileTTLSec:             3600,
		Extractor:              config.ExtractorYtDlp,
		YtDlpPath:              "yt-dlp",
		FFmpegPath:             "ffmpeg",
		RegistryDriver:         config.RegistrySQLite,
		RegistryPath:           filepath.Join(dir, "registry.db"),
	}
}

func TestInitExtractor(t *testing.T) {
	cfg := testConfig(t)

	ext := initExtractor(cfg, discardLogger())
	assert.IsType(t, &extractor.YtDlp{}, ext)

	cfg.Extractor = config.ExtractorNative
	ext = initExtractor(cfg, discardLogger())
	assert.IsType(t, &extractor.Native{}, ext)
}

func TestInitRegistry(t *testing.T) {
	cfg := testConfig(t)

	reg, err := initRegistry(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &download.SQLiteRegistry{}, reg)
	closeRegistry(reg)
	assert.FileExists(t, cfg.RegistryPath)

	cfg.RegistryDriver = config.RegistryMemory
	reg, err = initRegistry(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &download.MemoryRegistry{}, reg)
}

func TestInitStorage_Local(t *testing.T) {
	cfg := testConfig(t)

	store, err := initStorage(cfg, discardLogger())
	require.NoError(t, err)
	local, ok := store.(*storage.LocalStorage)
	require.True(t, ok)
	assert.DirExists(t, local.Root())
}

func TestInitStorage_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "eu-west-1"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"

	store, err := initStorage(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &storage.S3Storage{}, store)
}

func TestNewFetchDependencies_Close(t *testing.T) {
	deps, err := NewFetchDependencies(testConfig(t), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, deps.Downloads)
	require.NotNil(t, deps.Statuses)
	assert.NoError(t, deps.HealthCheck(context.Background()))

	deps.StartReaper(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, deps.Close(ctx))

	// A closed pool rejects new work.
	_, err = deps.Downloads.Submit(context.Background(), download.Request{URL: "https://youtu.be/x"})
	assert.Error(t, err)
}
