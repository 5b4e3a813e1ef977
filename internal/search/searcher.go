// Package search runs a free-text query against every transcript in the
// library and turns the matching service's answers into timestamped results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jamesfarrell.me/video-library/internal/metrics"
	"jamesfarrell.me/video-library/internal/storage/models"
)

const DefaultConcurrency = 4

var ErrEmptyQuery = errors.New("search query is empty")

// TranscriptSource is the read side of the library.
type TranscriptSource interface {
	ListVideos() ([]string, error)
	GetTranscript(name string) (*models.Transcript, bool, error)
}

type Config struct {
	// Concurrency caps in-flight matching calls.
	Concurrency int
	Cache       Cache
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

type Searcher struct {
	source      TranscriptSource
	matcher     Matcher
	cache       Cache
	concurrency int
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func NewSearcher(source TranscriptSource, matcher Matcher, cfg Config) *Searcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Cache == nil {
		cfg.Cache = NopCache{}
	}
	return &Searcher{
		source:      source,
		matcher:     matcher,
		cache:       cfg.Cache,
		concurrency: cfg.Concurrency,
		metrics:     cfg.Metrics,
		log:         cfg.Logger.With().Str("component", "search").Logger(),
	}
}

// Search matches query against every indexed video. Results follow library
// index order, one per video that has a transcript. Videos without a
// transcript are skipped; a failed matching call marks only that video's
// result as failed. There is no ranking across videos.
func (s *Searcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	names, err := s.source.ListVideos()
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	s.metrics.SearchStarted()

	// each worker owns one slot, so completion order does not matter
	slots := make([]*models.SearchResult, len(names))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, name := range names {
		g.Go(func() error {
			slots[i] = s.searchVideo(ctx, query, name)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	s.log.Info().Str("query", query).Int("videos", len(names)).Int("results", len(results)).Msg("search complete")
	return results, nil
}

func (s *Searcher) searchVideo(ctx context.Context, query, name string) (result *models.SearchResult) {
	log := s.log.With().Str("video", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("matching panicked")
			s.metrics.MatchCall(metrics.OutcomeFailure, 0)
			result = failedResult(name, fmt.Errorf("matching panicked: %v", r))
		}
	}()

	transcript, found, err := s.source.GetTranscript(name)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load transcript")
		return failedResult(name, err)
	}
	if !found {
		log.Debug().Msg("no transcript, skipping")
		return nil
	}

	rendered := RenderSegments(transcript.Segments)
	key := CacheKey(query, rendered)

	raw, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("match cache read failed")
	}
	if hit {
		s.metrics.MatchCall(metrics.OutcomeCached, 0)
		return newResult(name, raw)
	}

	start := time.Now()
	raw, err = s.matcher.Match(ctx, query, rendered)
	if err != nil {
		s.metrics.MatchCall(metrics.OutcomeFailure, time.Since(start))
		log.Warn().Err(err).Msg("matching failed")
		return failedResult(name, err)
	}
	s.metrics.MatchCall(metrics.OutcomeSuccess, time.Since(start))

	if err := s.cache.Set(ctx, key, raw); err != nil {
		log.Warn().Err(err).Msg("match cache write failed")
	}
	return newResult(name, raw)
}

func newResult(name, raw string) *models.SearchResult {
	return &models.SearchResult{
		Video:      name,
		RawText:    raw,
		Timestamps: ParseMatches(raw),
	}
}

func failedResult(name string, err error) *models.SearchResult {
	return &models.SearchResult{
		Video:      name,
		Timestamps: []models.Match{},
		Error:      err.Error(),
	}
}
