// Package library wires acquisition, transcription, storage and search into
// the operations a presentation layer exposes to the user.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jamesfarrell.me/video-library/internal/acquisition"
	"jamesfarrell.me/video-library/internal/metrics"
	"jamesfarrell.me/video-library/internal/storage/flatfile"
	"jamesfarrell.me/video-library/internal/storage/models"
	"jamesfarrell.me/video-library/internal/transcription"
)

var (
	ErrAcquisition       = errors.New("acquisition failed")
	ErrTranscription     = errors.New("transcription failed")
	ErrStorage           = errors.New("storage failed")
	ErrVideoExists       = errors.New("video already exists")
	ErrVideoFileNotFound = errors.New("video file not found")
	ErrInvalidURL        = errors.New("invalid video URL")
)

// Acquirer stages the artifacts of a video. Staged artifacts are either
// committed through the Store or handed back to Discard.
type Acquirer interface {
	Acquire(ctx context.Context, url, name string) (*acquisition.Artifacts, error)
	Discard(artifacts *acquisition.Artifacts) error
}

type Store interface {
	CommitVideo(ctx context.Context, name string, transcript *models.Transcript, stagedDir string) error
	GetTranscript(name string) (*models.Transcript, bool, error)
	ListVideos() ([]string, error)
	VideoPath(name string) string
	HasVideoArtifact(name string) bool
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

type Config struct {
	// AllowOverwrite lets adding an existing name replace its transcript
	// and artifacts.
	AllowOverwrite bool
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
}

type Service struct {
	store          Store
	acquirer       Acquirer
	transcriber    transcription.Transcriber
	searcher       Searcher
	allowOverwrite bool
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

func NewService(store Store, acquirer Acquirer, transcriber transcription.Transcriber, searcher Searcher, cfg Config) *Service {
	return &Service{
		store:          store,
		acquirer:       acquirer,
		transcriber:    transcriber,
		searcher:       searcher,
		allowOverwrite: cfg.AllowOverwrite,
		metrics:        cfg.Metrics,
		log:            cfg.Logger.With().Str("component", "library").Logger(),
	}
}

type AddResult struct {
	Name        string
	AudioSizeMB float64
	Segments    int
}

// AddVideo acquires, transcribes and stores a video. Artifacts are staged
// until the transcript is committed with them, so any failure leaves the
// library, including an existing entry of the same name, unchanged.
func (s *Service) AddVideo(ctx context.Context, url, name string) (*AddResult, error) {
	url = strings.TrimSpace(url)
	if err := flatfile.ValidateName(name); err != nil {
		return nil, err
	}
	if !acquisition.IsSupportedURL(url) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	if !s.allowOverwrite {
		_, found, err := s.store.GetTranscript(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if found {
			return nil, fmt.Errorf("%w: %q", ErrVideoExists, name)
		}
	}

	log := s.log.With().Str("video", name).Logger()

	artifacts, err := s.acquirer.Acquire(ctx, url, name)
	if err != nil {
		var tooLarge *acquisition.TooLargeError
		if errors.As(err, &tooLarge) {
			s.metrics.VideoAdded(metrics.OutcomeTooLarge)
		} else {
			s.metrics.VideoAdded(metrics.OutcomeFailure)
		}
		log.Warn().Err(err).Msg("acquisition failed")
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	log.Info().Float64("audio_mb", artifacts.AudioSizeMB).Msg("downloaded")

	transcript, err := s.transcriber.Transcribe(ctx, artifacts.AudioPath)
	if err != nil {
		s.discard(log, artifacts)
		s.metrics.VideoAdded(metrics.OutcomeFailure)
		log.Warn().Err(err).Msg("transcription failed")
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}

	if err := s.store.CommitVideo(ctx, name, transcript, artifacts.Dir); err != nil {
		s.discard(log, artifacts)
		s.metrics.VideoAdded(metrics.OutcomeFailure)
		log.Error().Err(err).Msg("saving video failed")
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.metrics.VideoAdded(metrics.OutcomeSuccess)

	if videos, err := s.store.ListVideos(); err == nil {
		s.metrics.SetLibrarySize(len(videos))
	}

	return &AddResult{
		Name:        name,
		AudioSizeMB: artifacts.AudioSizeMB,
		Segments:    len(transcript.Segments),
	}, nil
}

func (s *Service) discard(log zerolog.Logger, artifacts *acquisition.Artifacts) {
	if err := s.acquirer.Discard(artifacts); err != nil {
		log.Warn().Err(err).Msg("failed to discard staged artifacts")
	}
}

func (s *Service) ListVideos() ([]string, error) {
	videos, err := s.store.ListVideos()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.metrics.SetLibrarySize(len(videos))
	return videos, nil
}

// Transcript returns the stored transcript, found=false when there is none.
func (s *Service) Transcript(name string) (*models.Transcript, bool, error) {
	t, found, err := s.store.GetTranscript(name)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return t, found, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return s.searcher.Search(ctx, query)
}

// Playback resolves where to start playing a video. It fails with
// ErrVideoFileNotFound when the video artifact is missing.
func (s *Service) Playback(name string, timestamp float64) (*models.Playback, error) {
	if !s.store.HasVideoArtifact(name) {
		return nil, fmt.Errorf("%w: %q", ErrVideoFileNotFound, name)
	}
	return models.NewPlayback(name, s.store.VideoPath(name), timestamp), nil
}
