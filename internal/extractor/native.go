package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kkdai/youtube/v2"

	"github.com/maauso/audiofetch-api/internal/media"
)

// ErrNoAudioFormat is returned when no audio stream satisfies the quality cap.
var ErrNoAudioFormat = errors.New("requested format is not available")

// maxNameBytes keeps generated names well under common filesystem limits.
const maxNameBytes = 200

// qualityCapKbps maps quality tiers to the bitrate ceiling of the source stream.
// Zero means no ceiling.
var qualityCapKbps = map[string]int{
	"high":   0,
	"medium": 128,
	"low":    64,
}

// videoClient is the subset of *youtube.Client the native extractor uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Compile-time check that Native implements Extractor.
var _ Extractor = (*Native)(nil)

// Native implements Extractor without external download tools: it reads the
// audio stream with github.com/kkdai/youtube and transcodes it with ffmpeg.
type Native struct {
	client     videoClient
	transcoder media.Transcoder
}

// NewNative creates a native extractor that transcodes with the given Transcoder.
func NewNative(transcoder media.Transcoder) *Native {
	return &Native{
		client:     &youtube.Client{},
		transcoder: transcoder,
	}
}

// Extract resolves the video, streams the chosen audio format into the
// workspace and converts it to p.Format.
func (n *Native) Extract(ctx context.Context, p Params) (*Output, error) {
	video, err := n.client.GetVideoContext(ctx, p.URL)
	if err != nil {
		return nil, n.fail(ctx, err)
	}

	format, err := selectAudioFormat(video.Formats, p.Quality)
	if err != nil {
		return nil, &ExtractionError{Message: err.Error(), Err: err}
	}

	base := sanitizeFilename(video.Title)
	src := filepath.Join(p.WorkDir, base+".source"+sourceExt(format.MimeType))
	if err := n.fetch(ctx, video, format, src); err != nil {
		_ = os.Remove(src)
		return nil, n.fail(ctx, err)
	}
	defer func() { _ = os.Remove(src) }()

	dst := filepath.Join(p.WorkDir, base+"."+p.Format)
	opts := media.TranscodeOpts{Format: p.Format, BitrateKbps: qualityCapKbps[p.Quality]}
	if err := n.transcoder.Transcode(ctx, src, dst, opts); err != nil {
		if ctx.Err() != nil {
			return nil, wrapContext(ctx)
		}
		// ffmpeg errors carry arguments and stderr; keep them out of Message.
		return nil, &ExtractionError{Message: "transcode failed", Err: err}
	}

	title := video.Title
	if title == "" {
		title = "Unknown"
	}
	return &Output{Title: title, Path: dst}, nil
}

// fetch copies the selected stream into path.
func (n *Native) fetch(ctx context.Context, video *youtube.Video, format *youtube.Format, path string) error {
	stream, _, err := n.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	// Local file errors name workspace paths, so they get a fixed message.
	f, err := os.Create(path) // #nosec G304 - path is built inside the workspace
	if err != nil {
		return &ExtractionError{Message: "could not store audio stream", Err: err}
	}

	if _, err := io.Copy(f, stream); err != nil {
		_ = f.Close()
		return &ExtractionError{Message: "audio stream interrupted", Err: err}
	}
	if err := f.Close(); err != nil {
		return &ExtractionError{Message: "could not store audio stream", Err: err}
	}
	return nil
}

func (n *Native) fail(ctx context.Context, err error) *ExtractionError {
	if ctx.Err() != nil {
		return wrapContext(ctx)
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr
	}
	return &ExtractionError{Message: err.Error(), Err: err}
}

// selectAudioFormat picks the highest-bitrate audio-only stream under the
// quality ceiling. Unknown qualities get no ceiling.
func selectAudioFormat(formats youtube.FormatList, quality string) (*youtube.Format, error) {
	ceiling := qualityCapKbps[quality] * 1000

	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		rate := bitrate(f)
		if ceiling > 0 && rate > ceiling {
			continue
		}
		if best == nil || rate > bitrate(best) {
			best = f
		}
	}

	if best == nil {
		return nil, ErrNoAudioFormat
	}
	return best, nil
}

func bitrate(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

// sourceExt derives a file extension from a stream MIME type.
func sourceExt(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".bin"
	}
	switch mediaType {
	case "audio/mp4":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

// sanitizeFilename turns a title into a safe single path element.
func sanitizeFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, title)

	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")
	if len(cleaned) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = cleaned[:cut]
	}
	if cleaned == "" {
		return "audio"
	}
	return cleaned
}
