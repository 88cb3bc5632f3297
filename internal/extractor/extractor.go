// Package extractor defines the Extraction Adapter: the black box that turns a
// video URL into a local audio file plus its title. The yt-dlp CLI and a native
// Go client both implement the Extractor interface.
package extractor

import (
	"context"
	"errors"
)

// ErrNoOutput is returned when an extraction reports success but produced no file.
var ErrNoOutput = errors.New("extractor: no output file produced")

// Params contains the input of a single extraction.
type Params struct {
	// URL is the video page or short link.
	URL string
	// Format is the target audio format (mp3, wav, m4a, flac, ogg).
	Format string
	// Quality is the requested quality tier (high, medium, low).
	Quality string
	// Selector is the stream selection hint derived from Quality,
	// e.g. "bestaudio[abr<=128]".
	Selector string
	// WorkDir is the workspace the output must be written into.
	WorkDir string
}

// Output is the result of a successful extraction.
type Output struct {
	// Title is the media title reported by the source.
	Title string
	// Path is the nominal output path. Callers should not assume it exists
	// because output naming can diverge from the requested extension.
	Path string
}

// Extractor resolves metadata and downloads the audio of a URL into a workspace.
type Extractor interface {
	// Extract runs a blocking extraction. Every failure is an *ExtractionError.
	Extract(ctx context.Context, p Params) (*Output, error)
}

// ExtractionError is a failure reported by the extraction backend, such as
// unavailable or region-locked media. Message is suitable for end users.
type ExtractionError struct {
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	return e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// wrapContext converts a context failure into an ExtractionError.
func wrapContext(ctx context.Context) *ExtractionError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ExtractionError{Message: "extraction timed out", Err: ctx.Err()}
	}
	return &ExtractionError{Message: "extraction cancelled", Err: ctx.Err()}
}
