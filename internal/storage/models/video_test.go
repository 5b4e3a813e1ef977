package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "zero", seconds: 0, want: "0:00"},
		{name: "fractional", seconds: 12.5, want: "0:12"},
		{name: "over a minute", seconds: 75.4, want: "1:15"},
		{name: "over an hour", seconds: 3725, want: "62:05"},
		{name: "negative", seconds: -3, want: "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimestamp(tt.seconds))
		})
	}
}

func TestNewPlayback(t *testing.T) {
	p := NewPlayback("demo", "/data/demo/video.mp4", 47.9)
	assert.Equal(t, "demo", p.Video)
	assert.Equal(t, 47, p.StartSeconds)
	assert.Equal(t, "/data/demo/video.mp4", p.Path)

	assert.Equal(t, 0, NewPlayback("demo", "", -1).StartSeconds)
}

func TestNewTranscript(t *testing.T) {
	tr := NewTranscript("", []Segment{{Start: 0, End: 1, Text: " hello"}, {Start: 1, End: 2, Text: "world "}})
	assert.Equal(t, "hello world", tr.Text)
	assert.Equal(t, 2.0, tr.Duration())

	empty := NewTranscript("", nil)
	assert.NotNil(t, empty.Segments)
	assert.Empty(t, empty.Segments)
	assert.Equal(t, 0.0, empty.Duration())
}
