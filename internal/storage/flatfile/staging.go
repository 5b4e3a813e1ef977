package flatfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jamesfarrell.me/video-library/internal/storage/models"
)

// StageVideoDir creates a private directory for the artifacts of a video that
// is still being fetched. It lives under a dot-prefixed root in the data
// directory, which ValidateName keeps apart from every video name.
func (s *Store) StageVideoDir(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	root, err := os.MkdirTemp(s.dir, stagingPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("error creating staging directory: %w", err)
	}
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, dirPerm); err != nil {
		_ = os.RemoveAll(root)
		return "", fmt.Errorf("error creating staging directory: %w", err)
	}
	return dir, nil
}

// DiscardStage removes a staged directory and everything in it.
func (s *Store) DiscardStage(stagedDir string) error {
	root, err := s.stagingRoot(stagedDir)
	if err != nil {
		return err
	}
	return os.RemoveAll(root)
}

// CommitVideo stores transcript next to the staged artifacts and swaps the
// staged directory in as the video's directory, then records the name in the
// index. Either the whole new entry becomes visible or the previous entry,
// artifacts included, is left exactly as it was.
func (s *Store) CommitVideo(ctx context.Context, name string, transcript *models.Transcript, stagedDir string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if transcript == nil {
		return fmt.Errorf("transcript for %q is nil", name)
	}
	root, err := s.stagingRoot(stagedDir)
	if err != nil {
		return err
	}
	if filepath.Base(stagedDir) != name {
		return fmt.Errorf("staged directory %s does not belong to %q", stagedDir, name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := storedTranscript(transcript)
	if err := writeJSONAtomic(filepath.Join(stagedDir, transcriptFile), data); err != nil {
		return fmt.Errorf("failed to save transcript for %q: %w", name, err)
	}

	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	live := s.VideoDir(name)
	previous := filepath.Join(root, "previous")

	hadPrevious := true
	if err := os.Rename(live, previous); errors.Is(err, fs.ErrNotExist) {
		hadPrevious = false
	} else if err != nil {
		return fmt.Errorf("failed to retire previous files of %q: %w", name, err)
	}

	restore := func() {
		if !hadPrevious {
			return
		}
		if err := os.Rename(previous, live); err != nil {
			s.log.Error().Err(err).Str("video", name).Msg("failed to restore previous files")
		}
	}

	if err := os.Rename(stagedDir, live); err != nil {
		restore()
		return fmt.Errorf("failed to move files of %q into place: %w", name, err)
	}

	if err := s.recordVideo(name); err != nil {
		if mvErr := os.Rename(live, stagedDir); mvErr == nil {
			restore()
		}
		return fmt.Errorf("failed to update index for %q: %w", name, err)
	}

	if err := os.RemoveAll(root); err != nil {
		s.log.Warn().Err(err).Str("dir", root).Msg("failed to clean staging directory")
	}

	s.log.Info().
		Str("video", name).
		Int("segments", len(data.Segments)).
		Bool("replaced", hadPrevious).
		Msg("video committed")
	return nil
}

// stagingRoot returns the staging root holding stagedDir, refusing paths
// StageVideoDir could not have produced.
func (s *Store) stagingRoot(stagedDir string) (string, error) {
	root := filepath.Dir(filepath.Clean(stagedDir))
	if filepath.Dir(root) != filepath.Clean(s.dir) || !strings.HasPrefix(filepath.Base(root), stagingPrefix) {
		return "", fmt.Errorf("%s is not a staging directory", stagedDir)
	}
	return root, nil
}
