package models

import "strings"

// Segment is a time-bounded span of transcribed speech, offsets in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// NewTranscript builds a transcript from segments, joining their text when text is empty.
func NewTranscript(text string, segments []Segment) *Transcript {
	if segments == nil {
		segments = []Segment{}
	}
	if text == "" && len(segments) > 0 {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			if t := strings.TrimSpace(seg.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, " ")
	}
	return &Transcript{Text: text, Segments: segments}
}

// Duration is the end of the last segment.
func (t *Transcript) Duration() float64 {
	if t == nil || len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}
