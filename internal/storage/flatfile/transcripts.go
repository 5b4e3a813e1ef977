package flatfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"jamesfarrell.me/video-library/internal/storage/models"
)

// SaveTranscript persists the transcript for a video and records the name in
// the library index. The index is only touched after the transcript is on disk.
func (s *Store) SaveTranscript(ctx context.Context, name string, transcript *models.Transcript) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if transcript == nil {
		return fmt.Errorf("transcript for %q is nil", name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := storedTranscript(transcript)

	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	if err := writeJSONAtomic(s.transcriptPath(name), data); err != nil {
		return fmt.Errorf("failed to save transcript for %q: %w", name, err)
	}

	if err := s.recordVideo(name); err != nil {
		return fmt.Errorf("failed to update index for %q: %w", name, err)
	}

	s.log.Info().
		Str("video", name).
		Int("segments", len(data.Segments)).
		Msg("transcript saved")
	return nil
}

// storedTranscript is the on-disk form of t. Only nil segments are
// normalized so a transcript reads back exactly as it was saved.
func storedTranscript(t *models.Transcript) *models.Transcript {
	segments := t.Segments
	if segments == nil {
		segments = []models.Segment{}
	}
	return &models.Transcript{Text: t.Text, Segments: segments}
}

// GetTranscript loads the transcript of a video. A missing transcript is
// reported with found=false and a nil error.
func (s *Store) GetTranscript(name string) (*models.Transcript, bool, error) {
	if err := ValidateName(name); err != nil {
		return nil, false, nil
	}

	raw, err := os.ReadFile(s.transcriptPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read transcript for %q: %w", name, err)
	}

	var transcript models.Transcript
	if err := json.Unmarshal(raw, &transcript); err != nil {
		return nil, false, fmt.Errorf("failed to decode transcript for %q: %w", name, err)
	}
	if transcript.Segments == nil {
		transcript.Segments = []models.Segment{}
	}
	return &transcript, true, nil
}
