package media

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestVideo creates a short video with a sine tone using ffmpeg.
func createTestVideo(t *testing.T, path string) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=red:s=64x64:d=0.5",
		"-f", "lavfi",
		"-i", "sine=frequency=440:duration=0.5",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegProcessor(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		p := NewFFmpegProcessor("")
		assert.Equal(t, "ffmpeg", p.ffmpegPath)
	})

	t.Run("custom path", func(t *testing.T) {
		p := NewFFmpegProcessor("/usr/local/bin/ffmpeg")
		assert.Equal(t, "/usr/local/bin/ffmpeg", p.ffmpegPath)
	})
}

func TestTranscodeArgs(t *testing.T) {
	tests := []struct {
		name string
		opts TranscodeOpts
		want []string
	}{
		{
			name: "mp3 with bitrate",
			opts: TranscodeOpts{Format: "mp3", BitrateKbps: 128},
			want: []string{"-y", "-i", "in.webm", "-vn", "-c:a", "libmp3lame", "-b:a", "128k", "out.mp3"},
		},
		{
			name: "mp3 encoder default",
			opts: TranscodeOpts{Format: "mp3"},
			want: []string{"-y", "-i", "in.webm", "-vn", "-c:a", "libmp3lame", "out.mp3"},
		},
		{
			name: "flac ignores bitrate",
			opts: TranscodeOpts{Format: "flac", BitrateKbps: 64},
			want: []string{"-y", "-i", "in.webm", "-vn", "-c:a", "flac", "out.mp3"},
		},
		{
			name: "ogg uses vorbis",
			opts: TranscodeOpts{Format: "ogg", BitrateKbps: 64},
			want: []string{"-y", "-i", "in.webm", "-vn", "-c:a", "libvorbis", "-b:a", "64k", "out.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transcodeArgs("in.webm", "out.mp3", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := transcodeArgs("in.webm", "out.aiff", TranscodeOpts{Format: "aiff"})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("same file", func(t *testing.T) {
		_, err := transcodeArgs("a.mp3", "a.mp3", TranscodeOpts{Format: "mp3"})
		assert.ErrorIs(t, err, ErrSameFile)
	})
}

func TestFFmpegError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &FFmpegError{Args: []string{"-i", "x"}, Stderr: "No such file", Err: inner}

	assert.Contains(t, err.Error(), "No such file")
	assert.ErrorIs(t, err, inner)
}

func TestTranscode(t *testing.T) {
	skipIfNoFFmpeg(t)

	tmpDir := t.TempDir()
	p := NewFFmpegProcessor("")
	src := filepath.Join(tmpDir, "source.mp4")
	createTestVideo(t, src)

	for _, format := range []string{"wav", "m4a", "flac"} {
		t.Run(format, func(t *testing.T) {
			dst := filepath.Join(tmpDir, "out."+format)

			err := p.Transcode(context.Background(), src, dst, TranscodeOpts{Format: format, BitrateKbps: 64})
			require.NoError(t, err)

			info, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		})
	}

	t.Run("non-existent source", func(t *testing.T) {
		err := p.Transcode(context.Background(), "/nonexistent/in.mp4", filepath.Join(tmpDir, "x.wav"), TranscodeOpts{Format: "wav"})
		var ffErr *FFmpegError
		assert.ErrorAs(t, err, &ffErr)
	})

	t.Run("context timeout", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-1*time.Second))
		defer cancel()

		err := p.Transcode(ctx, src, filepath.Join(tmpDir, "late.wav"), TranscodeOpts{Format: "wav"})
		assert.Error(t, err)
	})
}
