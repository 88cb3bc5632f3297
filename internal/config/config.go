// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrMongoURLRequired is returned when MONGO_URL is not set.
	ErrMongoURLRequired = errors.New("config: MONGO_URL is required")
	// ErrDBNameRequired is returned when DB_NAME is not set.
	ErrDBNameRequired = errors.New("config: DB_NAME is required")
	// ErrUnknownExtractor is returned when EXTRACTOR names an unsupported adapter.
	ErrUnknownExtractor = errors.New("config: EXTRACTOR must be one of ytdlp, native")
	// ErrUnknownRegistryDriver is returned when REGISTRY_DRIVER is unsupported.
	ErrUnknownRegistryDriver = errors.New("config: REGISTRY_DRIVER must be one of sqlite, memory")
	// ErrInvalidConcurrency is returned when MAX_CONCURRENT_DOWNLOADS is not positive.
	ErrInvalidConcurrency = errors.New("config: MAX_CONCURRENT_DOWNLOADS must be positive")
	// ErrInvalidDownloadTimeout is returned when DOWNLOAD_TIMEOUT_SEC is not positive.
	ErrInvalidDownloadTimeout = errors.New("config: DOWNLOAD_TIMEOUT_SEC must be positive")
)

// Supported extractor backends.
const (
	ExtractorYtDlp  = "ytdlp"
	ExtractorNative = "native"
)

// Supported file registry drivers.
const (
	RegistrySQLite = "sqlite"
	RegistryMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8000" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Status log persistence
	MongoURL         string `env:"MONGO_URL" json:"-"` // Masked in JSON, may carry credentials
	DBName           string `env:"DB_NAME" json:"db_name"`
	StatusCollection string `env:"STATUS_COLLECTION, default=status_checks" json:"status_collection"`

	// Workspace settings
	TempDir string `env:"TEMP_DIR, default=/tmp/audiofetch" json:"temp_dir"`

	// Download settings
	MaxConcurrentDownloads int    `env:"MAX_CONCURRENT_DOWNLOADS, default=3" json:"max_concurrent_downloads"`
	DownloadTimeoutSec     int    `env:"DOWNLOAD_TIMEOUT_SEC, default=600" json:"download_timeout_sec"`
	FileTTLSec             int    `env:"FILE_TTL_SEC, default=3600" json:"file_ttl_sec"`
	ReapIntervalSec        int    `env:"REAP_INTERVAL_SEC, default=300" json:"reap_interval_sec"`
	Extractor              string `env:"EXTRACTOR, default=ytdlp" json:"extractor"`
	YtDlpPath              string `env:"YTDLP_PATH, default=yt-dlp" json:"ytdlp_path"`
	FFmpegPath             string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// File registry settings
	RegistryDriver string `env:"REGISTRY_DRIVER, default=sqlite" json:"registry_driver"`
	RegistryPath   string `env:"REGISTRY_PATH, default=/tmp/audiofetch/registry.db" json:"registry_path"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// DownloadTimeout returns the upper bound for a single extraction run.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

// FileTTL returns how long a finished file stays retrievable.
func (c *Config) FileTTL() time.Duration {
	return time.Duration(c.FileTTLSec) * time.Second
}

// ReapInterval returns the period of the expired-file sweep.
func (c *Config) ReapInterval() time.Duration {
	return time.Duration(c.ReapIntervalSec) * time.Second
}

// Process reads configuration from environment variables without enforcing
// the persistence requirements of the HTTP service. The fetch command uses it.
func Process() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validateDownload(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if the variables the server needs are not set.
func Load() (*Config, error) {
	cfg, err := Process()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.MongoURL == "" {
		return ErrMongoURLRequired
	}
	if c.DBName == "" {
		return ErrDBNameRequired
	}
	return c.validateDownload()
}

func (c *Config) validateDownload() error {
	switch c.Extractor {
	case ExtractorYtDlp, ExtractorNative:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownExtractor, c.Extractor)
	}
	switch c.RegistryDriver {
	case RegistrySQLite, RegistryMemory:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownRegistryDriver, c.RegistryDriver)
	}
	if c.MaxConcurrentDownloads <= 0 {
		return ErrInvalidConcurrency
	}
	if c.DownloadTimeoutSec <= 0 {
		return ErrInvalidDownloadTimeout
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DBName: %s, TempDir: %s, MaxConcurrentDownloads: %d, DownloadTimeoutSec: %d, FileTTLSec: %d, Extractor: %s, RegistryDriver: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DBName,
		c.TempDir,
		c.MaxConcurrentDownloads,
		c.DownloadTimeoutSec,
		c.FileTTLSec,
		c.Extractor,
		c.RegistryDriver,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
