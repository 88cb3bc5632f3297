package download

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_WithDefaults(t *testing.T) {
	req := Request{URL: "https://youtu.be/abc"}.WithDefaults()
	assert.Equal(t, FormatMP3, req.Format)
	assert.Equal(t, QualityHigh, req.Quality)

	req = Request{URL: "https://youtu.be/abc", Format: FormatFLAC, Quality: QualityLow}.WithDefaults()
	assert.Equal(t, FormatFLAC, req.Format)
	assert.Equal(t, QualityLow, req.Quality)
}

func TestRequest_Validate_URL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=abc", true},
		{"https://music.youtube.com/watch?v=abc", true},
		{"https://example.com", false},
		{"https://YOUTUBE.COM/watch?v=abc", false},
		{"https://you-tube.com/watch?v=abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := Request{URL: tt.url, Format: FormatMP3}.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "url", verr.Field)
			assert.Equal(t, "Please provide a valid YouTube URL", verr.Error())
		})
	}
}

func TestRequest_Validate_Format(t *testing.T) {
	for _, f := range Formats {
		assert.NoError(t, Request{URL: "https://youtu.be/x", Format: f}.Validate())
	}

	err := Request{URL: "https://youtu.be/x", Format: "aac"}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "format", verr.Field)
	assert.Contains(t, verr.Message, "mp3, wav, m4a, flac, ogg")
}

func TestRequest_Validate_QualityIsNotChecked(t *testing.T) {
	err := Request{URL: "https://youtu.be/x", Format: FormatMP3, Quality: "ultra"}.Validate()
	assert.NoError(t, err)
}

func TestSelectorFor(t *testing.T) {
	assert.Equal(t, "bestaudio", SelectorFor(QualityHigh))
	assert.Equal(t, "bestaudio[abr<=128]", SelectorFor(QualityMedium))
	assert.Equal(t, "bestaudio[abr<=64]", SelectorFor(QualityLow))
	assert.Equal(t, "bestaudio", SelectorFor("ultra"))
	assert.Equal(t, "bestaudio", SelectorFor(""))
}
