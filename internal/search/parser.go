package search

import (
	"regexp"
	"strconv"
	"strings"

	"jamesfarrell.me/video-library/internal/storage/models"
)

// timestampPattern matches a bracketed, seconds-suffixed timestamp followed
// by a colon, e.g. "[12.5s]:".
var timestampPattern = regexp.MustCompile(`\[(\d+(?:\.\d*)?)s\]:`)

// ParseMatches extracts (timestamp, description) pairs from a matching
// response in the order they appear. A description runs from the colon to the
// next timestamp token or the end of the text. Text without any timestamp
// yields an empty slice.
func ParseMatches(raw string) []models.Match {
	locs := timestampPattern.FindAllStringSubmatchIndex(raw, -1)
	matches := make([]models.Match, 0, len(locs))

	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		description := strings.TrimSpace(raw[loc[1]:end])
		if description == "" {
			continue
		}

		ts, err := strconv.ParseFloat(raw[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}

		matches = append(matches, models.Match{
			Timestamp:   ts,
			Description: description,
		})
	}

	return matches
}
