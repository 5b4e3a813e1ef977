package models

import (
	"fmt"
	"math"
)

type VideoRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type VideoResponse struct {
	Name        string  `json:"name"`
	AudioSizeMB float64 `json:"audioSizeMB"`
}

type VideoListResponse struct {
	Videos []string `json:"videos"`
	Count  int      `json:"count"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is the outcome of matching one video against a query.
// It is never persisted.
type SearchResult struct {
	Video      string  `json:"video"`
	RawText    string  `json:"rawText"`
	Timestamps []Match `json:"timestamps"`
	// Error is set when the matching service failed for this video.
	Error string `json:"error,omitempty"`
}

func (r SearchResult) Failed() bool {
	return r.Error != ""
}

// Match is one timestamped moment picked out of a matching response.
type Match struct {
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description"`
}

// Label renders the timestamp as m:ss.
func (m Match) Label() string {
	return FormatTimestamp(m.Timestamp)
}

// Playback describes where the player should start for a video.
type Playback struct {
	Video        string `json:"video"`
	StartSeconds int    `json:"startSeconds"`
	Path         string `json:"-"`
}

// NewPlayback truncates the timestamp to whole seconds, negative values start at 0.
func NewPlayback(video, path string, timestamp float64) *Playback {
	start := 0
	if timestamp > 0 && !math.IsInf(timestamp, 1) {
		start = int(timestamp)
	}
	return &Playback{Video: video, StartSeconds: start, Path: path}
}

// FormatTimestamp renders seconds as m:ss, e.g. 75.4 -> "1:15".
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
