package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// Static errors for media operations.
var (
	// ErrUnsupportedFormat is returned when no codec is known for the target format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrSameFile is returned when source and destination are identical.
	ErrSameFile = errors.New("source and destination must differ")
)

// audioCodec describes how ffmpeg encodes one target format.
type audioCodec struct {
	name  string
	lossy bool
}

var audioCodecs = map[string]audioCodec{
	"mp3":  {name: "libmp3lame", lossy: true},
	"wav":  {name: "pcm_s16le"},
	"m4a":  {name: "aac", lossy: true},
	"flac": {name: "flac"},
	"ogg":  {name: "libvorbis", lossy: true},
}

// Compile-time check that FFmpegProcessor implements Transcoder.
var _ Transcoder = (*FFmpegProcessor)(nil)

// FFmpegProcessor implements Transcoder using the ffmpeg CLI.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegProcessor(ffmpegPath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath}
}

// Transcode encodes the audio of src into dst.
func (p *FFmpegProcessor) Transcode(ctx context.Context, src, dst string, opts TranscodeOpts) error {
	args, err := transcodeArgs(src, dst, opts)
	if err != nil {
		return err
	}
	return p.runFFmpeg(ctx, args)
}

// transcodeArgs builds the ffmpeg argument list for an audio-only encode.
func transcodeArgs(src, dst string, opts TranscodeOpts) ([]string, error) {
	codec, ok := audioCodecs[opts.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if src == dst {
		return nil, ErrSameFile
	}

	// Audio-only encode; an existing dst is overwritten.
	args := []string{"-y", "-i", src, "-vn", "-c:a", codec.name}
	if codec.lossy && opts.BitrateKbps > 0 {
		args = append(args, "-b:a", strconv.Itoa(opts.BitrateKbps)+"k")
	}
	return append(args, dst), nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
