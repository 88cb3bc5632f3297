package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maauso/audiofetch-api/internal/bootstrap"
	"github.com/maauso/audiofetch-api/internal/config"
	"github.com/maauso/audiofetch-api/internal/download"
)

var (
	fetchFormat   string
	fetchQuality  string
	fetchOutDir   string
	fetchPushToS3 bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download the audio of one video to a local directory",
	Long: `Download the audio of one video and write it to --out.

The download runs through the same validation, workspace and extraction
pipeline as the HTTP API. MongoDB is not needed.

Example:
  audiofetch fetch "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
  audiofetch fetch "https://youtu.be/dQw4w9WgXcQ" --format ogg --quality low --out /tmp`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", string(download.FormatMP3), "Audio format: mp3, wav, m4a, flac or ogg")
	fetchCmd.Flags().StringVarP(&fetchQuality, "quality", "q", string(download.QualityHigh), "Audio quality: high, medium or low")
	fetchCmd.Flags().StringVarP(&fetchOutDir, "out", "o", ".", "Directory to write the audio file to")
	fetchCmd.Flags().BoolVar(&fetchPushToS3, "push-to-s3", false, "Also upload the file to S3 (requires S3_BUCKET and S3_REGION)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Process()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger()

	deps, err := bootstrap.NewFetchDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Warn("cleanup failed", slog.String("error", err.Error()))
		}
	}()

	ctx := cmd.Context()
	result, err := deps.Downloads.Submit(ctx, download.Request{
		URL:      args[0],
		Format:   download.Format(fetchFormat),
		Quality:  download.Quality(fetchQuality),
		PushToS3: fetchPushToS3,
	})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}
	defer func() {
		if err := deps.Downloads.Discard(context.WithoutCancel(ctx), result.FileID); err != nil {
			logger.Debug("discard failed", slog.String("error", err.Error()))
		}
	}()

	dst, err := copyToDir(result.FilePath, fetchOutDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", dst)
	if result.URL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", result.URL)
	}
	return nil
}

// copyToDir copies src into dir, keeping its base name.
func copyToDir(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open downloaded file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("write output file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return dst, nil
}
