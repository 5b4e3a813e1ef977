// Package flatfile keeps the video library in a single directory: one
// sub-directory per video holding its transcript and artifacts, plus an
// index.json listing the known video names in insertion order.
package flatfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

const (
	indexFile      = "index.json"
	transcriptFile = "transcript.json"
	videoFile      = "video.mp4"
	lockFile       = ".library.lock"
	stagingPrefix  = ".staging-"

	dirPerm  = 0o755
	filePerm = 0o644
)

var ErrInvalidName = errors.New("invalid video name")

type Config struct {
	Dir    string
	Logger zerolog.Logger
}

// Store is the transcript store and library index. Writes go through one
// critical section guarded by a process mutex and a file lock, so a transcript
// and its index entry are never updated by two writers at once.
type Store struct {
	dir   string
	log   zerolog.Logger
	flock *flock.Flock
	mu    sync.Mutex
}

// Open creates the data directory if needed and verifies it is usable.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	if err := os.MkdirAll(cfg.Dir, dirPerm); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("error reading data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", cfg.Dir)
	}

	return &Store{
		dir:   cfg.Dir,
		log:   cfg.Logger.With().Str("component", "flatfile").Logger(),
		flock: flock.New(filepath.Join(cfg.Dir, lockFile)),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// ValidateName checks that a video name can be used as a single path component.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case trimmed != name:
		return fmt.Errorf("%w: leading or trailing whitespace in %q", ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case name == indexFile:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) VideoDir(name string) string {
	return filepath.Join(s.dir, name)
}

// AudioPath returns the audio artifact path for the given extension (without dot).
func (s *Store) AudioPath(name, ext string) string {
	return filepath.Join(s.dir, name, s.AudioFileName(ext))
}

func (s *Store) VideoPath(name string) string {
	return filepath.Join(s.dir, name, videoFile)
}

func (s *Store) AudioFileName(ext string) string {
	return "audio." + strings.TrimPrefix(ext, ".")
}

func (s *Store) VideoFileName() string {
	return videoFile
}

func (s *Store) transcriptPath(name string) string {
	return filepath.Join(s.dir, name, transcriptFile)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFile)
}

// HasVideoArtifact reports whether the playable video file exists.
func (s *Store) HasVideoArtifact(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(s.VideoPath(name))
	return err == nil && !info.IsDir()
}

func (s *Store) lock() error {
	s.mu.Lock()
	if err := s.flock.Lock(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("error locking library: %w", err)
	}
	return nil
}

func (s *Store) unlock() {
	if err := s.flock.Unlock(); err != nil {
		s.log.Warn().Err(err).Msg("failed to release library lock")
	}
	s.mu.Unlock()
}
