package search

import (
	"fmt"
	"strings"

	"jamesfarrell.me/video-library/internal/storage/models"
)

const DefaultTopN = 3

// RenderSegments writes one "[start s]: text" line per segment.
func RenderSegments(segments []models.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%.1fs]: %s", seg.Start, strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// BuildPrompt asks the model for the topN moments about query using the
// same timestamp format ParseMatches understands.
func BuildPrompt(query, rendered string, topN int) string {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return fmt.Sprintf(`Find top %d moments about: %q

%s

List them with EXACT format: [XXs]: description`, topN, query, rendered)
}
