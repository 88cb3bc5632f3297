package extractor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// outputTemplate names files after the media title, as the CLI reports it.
const outputTemplate = "%(title)s.%(ext)s"

const waitDelay = 5 * time.Second

// Compile-time check that YtDlp implements Extractor.
var _ Extractor = (*YtDlp)(nil)

// YtDlp implements Extractor by running the yt-dlp CLI.
type YtDlp struct {
	// binPath is the path to the yt-dlp binary. Defaults to "yt-dlp".
	binPath string
	// ffmpegPath is passed through as --ffmpeg-location when set.
	ffmpegPath string
}

// YtDlpOption configures a YtDlp extractor.
type YtDlpOption func(*YtDlp)

// WithFFmpegLocation points yt-dlp at a specific ffmpeg binary for post-processing.
func WithFFmpegLocation(path string) YtDlpOption {
	return func(y *YtDlp) {
		y.ffmpegPath = path
	}
}

// NewYtDlp creates a new yt-dlp extractor.
// If binPath is empty, it defaults to "yt-dlp" (found via PATH).
func NewYtDlp(binPath string, opts ...YtDlpOption) *YtDlp {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	y := &YtDlp{binPath: binPath}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Extract downloads the best matching audio stream and converts it to p.Format.
func (y *YtDlp) Extract(ctx context.Context, p Params) (*Output, error) {
	args := y.args(p)

	// #nosec G204 - binPath is set by the application; the URL is passed as a
	// single argument after "--" so it can never be read as a flag.
	cmd := exec.CommandContext(ctx, y.binPath, args...)
	// yt-dlp forks ffmpeg; do not wait on orphaned pipes forever after a kill.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, wrapContext(ctx)
		}
		return nil, &ExtractionError{Message: failureMessage(stderr.String(), err), Err: err}
	}

	title, path := parsePrinted(stdout.String())
	if path == "" {
		return nil, &ExtractionError{Message: ErrNoOutput.Error(), Err: ErrNoOutput}
	}
	if title == "" {
		title = "Unknown"
	}

	return &Output{Title: title, Path: path}, nil
}

// args builds the yt-dlp argument list. The two --print templates make the CLI
// emit the title first and the final post-processed path last.
func (y *YtDlp) args(p Params) []string {
	selector := p.Selector
	if selector == "" {
		selector = "bestaudio"
	}

	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-progress",
		"-f", selector,
		"-x",
		"--audio-format", p.Format,
		"-o", filepath.Join(p.WorkDir, outputTemplate),
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
	}
	if y.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", y.ffmpegPath)
	}
	return append(args, "--", p.URL)
}

// parsePrinted returns the first and last non-empty lines of stdout.
func parsePrinted(stdout string) (title, path string) {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	switch len(lines) {
	case 0:
		return "", ""
	case 1:
		return "", lines[0]
	default:
		return lines[0], lines[len(lines)-1]
	}
}

// failureMessage picks the CLI's own error line, falling back to the last
// stderr line and then to the process error.
func failureMessage(stderr string, runErr error) string {
	var last, lastError string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			lastError = line
		}
	}
	switch {
	case lastError != "":
		return lastError
	case last != "":
		return last
	default:
		return fmt.Sprintf("yt-dlp: %v", runErr)
	}
}
