package flatfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

type index struct {
	Videos []string `json:"videos"`
}

// ListVideos returns the indexed video names in insertion order.
func (s *Store) ListVideos() ([]string, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Videos, nil
}

func (s *Store) readIndex() (*index, error) {
	raw, err := os.ReadFile(s.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return &index{Videos: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if idx.Videos == nil {
		idx.Videos = []string{}
	}
	return &idx, nil
}

// recordVideo appends name to the index unless already present.
// Callers must hold the store lock.
func (s *Store) recordVideo(name string) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	if slices.Contains(idx.Videos, name) {
		return nil
	}

	idx.Videos = append(idx.Videos, name)
	return writeJSONAtomic(s.indexPath(), idx)
}
