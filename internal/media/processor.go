// Package media provides audio transcoding on top of the ffmpeg CLI.
package media

import "context"

// TranscodeOpts configures an audio transcode.
type TranscodeOpts struct {
	// Format is the target container/codec family: mp3, wav, m4a, flac or ogg.
	Format string
	// BitrateKbps caps the output bitrate for lossy formats. Zero keeps the
	// encoder default. Ignored for wav and flac.
	BitrateKbps int
}

// Transcoder defines the interface for converting media into an audio file.
type Transcoder interface {
	// Transcode drops any video stream from src and encodes its audio into dst
	// using the codec that matches opts.Format.
	Transcode(ctx context.Context, src, dst string, opts TranscodeOpts) error
}
