package ui

import (
	"fmt"
	"io"
	"strings"

	"jamesfarrell.me/video-library/internal/storage/models"
)

// numberedMatch is one playable search hit; numbers run across all videos.
type numberedMatch struct {
	Number int
	Video  string
	Match  models.Match
}

func numberMatches(results []models.SearchResult) []numberedMatch {
	var out []numberedMatch
	for _, r := range results {
		for _, m := range r.Timestamps {
			out = append(out, numberedMatch{Number: len(out) + 1, Video: r.Video, Match: m})
		}
	}
	return out
}

// RenderVideos prints the library listing.
func RenderVideos(w io.Writer, videos []string) {
	fmt.Fprintf(w, "Videos in Library (%d)\n", len(videos))
	for _, v := range videos {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}

// RenderResults prints search results with playable hits numbered across
// all videos, matching the numbers play accepts.
func RenderResults(w io.Writer, results []models.SearchResult) {
	n := 0
	for _, r := range results {
		fmt.Fprintf(w, "📹 %s\n", r.Video)
		switch {
		case r.Failed():
			fmt.Fprintf(w, "   ⚠ matching failed: %s\n", r.Error)
		case len(r.Timestamps) > 0:
			for i, m := range r.Timestamps {
				n++
				fmt.Fprintf(w, "   [%d] ▶ %s  %d. %s\n", n, m.Label(), i+1, m.Description)
			}
		case strings.TrimSpace(r.RawText) != "":
			fmt.Fprintf(w, "   %s\n", strings.TrimSpace(r.RawText))
		default:
			fmt.Fprintln(w, "   No results found")
		}
	}
}

func RenderTranscript(w io.Writer, name string, t *models.Transcript) {
	fmt.Fprintf(w, "Transcript: %s (%s)\n", name, models.FormatTimestamp(t.Duration()))
	if len(t.Segments) == 0 {
		fmt.Fprintln(w, t.Text)
		return
	}
	for _, s := range t.Segments {
		fmt.Fprintf(w, "  [%s] %s\n", models.FormatTimestamp(s.Start), strings.TrimSpace(s.Text))
	}
}

const helpText = `Commands:
  add <url> <name>          download, transcribe and store a video
  add <name>                same, with the URL taken from the clipboard
  list                      show the library
  search <query>            find moments across all videos
  play <number>             play a search result
  play <name> [seconds]     play a video from an offset; a full
                            name like "Lecture 2" wins over an offset
  close                     stop playback
  transcript <name>         print a stored transcript
  help                      show this help
  quit                      leave the shell`
