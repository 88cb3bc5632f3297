// Package download orchestrates audio downloads: it validates requests, runs
// the extraction inside a disposable workspace on the bounded pool, records
// finished files under server-issued tokens and serves them back.
package download

import (
	"fmt"
	"strings"
)

// Format is the requested audio container.
type Format string

// Supported formats.
const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatM4A  Format = "m4a"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatMP3, FormatWAV, FormatM4A, FormatFLAC, FormatOGG}

// IsValid returns true if the format is supported.
func (f Format) IsValid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Quality is the requested audio quality tier.
type Quality string

// Quality tiers.
const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// selectors maps quality tiers to stream selection hints.
var selectors = map[Quality]string{
	QualityHigh:   "bestaudio",
	QualityMedium: "bestaudio[abr<=128]",
	QualityLow:    "bestaudio[abr<=64]",
}

// SelectorFor returns the stream selection hint for a quality tier.
// Unknown tiers fall back to the best available stream.
func SelectorFor(q Quality) string {
	if s, ok := selectors[q]; ok {
		return s
	}
	return selectors[QualityHigh]
}

// hostMarkers are the substrings a URL must contain to be accepted.
// The check is a plain, case-sensitive substring test.
var hostMarkers = []string{"youtube.com", "youtu.be"}

// Request describes one download.
type Request struct {
	URL      string
	Format   Format
	Quality  Quality
	PushToS3 bool
}

// WithDefaults fills in mp3/high when format or quality are empty.
func (r Request) WithDefaults() Request {
	if r.Format == "" {
		r.Format = FormatMP3
	}
	if r.Quality == "" {
		r.Quality = QualityHigh
	}
	return r
}

// Validate checks the URL against the host markers and the format against
// the supported set. Quality is not validated; see SelectorFor.
func (r Request) Validate() error {
	if !supportedURL(r.URL) {
		return &ValidationError{Field: "url", Message: "Please provide a valid YouTube URL"}
	}
	if !r.Format.IsValid() {
		names := make([]string, len(Formats))
		for i, f := range Formats {
			names[i] = string(f)
		}
		return &ValidationError{
			Field:   "format",
			Message: fmt.Sprintf("unsupported format %q: must be one of %s", r.Format, strings.Join(names, ", ")),
		}
	}
	return nil
}

func supportedURL(url string) bool {
	for _, marker := range hostMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// ValidationError reports a request rejected before any work was done.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Result is the outcome of Submit. FileID, FilePath, FileName and Title are
// set if and only if Success is true.
type Result struct {
	Success bool
	Message string
	// FileID is the opaque token used to fetch the file later.
	FileID string
	// FilePath is the server-side location of the file. Never sent to clients.
	FilePath string
	// FileName is the base name offered to clients.
	FileName string
	Title    string
	// URL is set when the file was also published to object storage.
	URL string
}
