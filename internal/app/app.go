// Package app assembles the video library from its configuration. Both the
// HTTP service and the CLI start from New.
package app

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jamesfarrell.me/video-library/internal/acquisition"
	"jamesfarrell.me/video-library/internal/config"
	"jamesfarrell.me/video-library/internal/library"
	"jamesfarrell.me/video-library/internal/metrics"
	"jamesfarrell.me/video-library/internal/search"
	"jamesfarrell.me/video-library/internal/storage/flatfile"
	"jamesfarrell.me/video-library/internal/transcription"
)

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    *flatfile.Store
	YtDlp    *acquisition.YtDlp
	Library  *library.Service
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	redis *redis.Client
}

// New wires every component. A configured but unreachable Redis is logged
// and search runs without a cache.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := flatfile.Open(flatfile.Config{Dir: cfg.DataDir, Logger: logger})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	if cfg.OpenAI.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is not set, transcription and search will fail")
	}

	opts := acquisition.DefaultOptions()
	if cfg.YtDlp.AudioFormat != "" {
		opts.AudioFormat = cfg.YtDlp.AudioFormat
	}
	if cfg.YtDlp.VideoFormat != "" {
		opts.VideoFormat = cfg.YtDlp.VideoFormat
	}
	ytdlp := acquisition.NewYtDlp(cfg.YtDlp.Path, opts, logger)
	pipeline := acquisition.NewPipeline(ytdlp, store, acquisition.PipelineConfig{
		MaxAudioMB: cfg.MaxAudioMB,
		Logger:     logger,
	})

	transcriber := transcription.NewService(transcription.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.TranscriptionModel,
		Format:   cfg.OpenAI.TranscriptionFormat,
		Language: cfg.OpenAI.Language,
		Logger:   logger,
	})

	matcher := search.NewChatMatcher(search.ChatMatcherConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.MatchModel,
		TopN:    cfg.OpenAI.TopN,
	})

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		YtDlp:    ytdlp,
		Registry: registry,
		Metrics:  m,
	}

	var cache search.Cache
	if cfg.Redis.Addr != "" {
		client, err := search.ConnectRedis(ctx, search.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("match cache disabled")
		} else {
			a.redis = client
			cache = search.NewRedisCache(client, cfg.Search.CacheTTL)
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("match cache enabled")
		}
	}

	searcher := search.NewSearcher(store, matcher, search.Config{
		Concurrency: cfg.Search.Concurrency,
		Cache:       cache,
		Metrics:     m,
		Logger:      logger,
	})

	a.Library = library.NewService(store, pipeline, transcriber, searcher, library.Config{
		AllowOverwrite: cfg.AllowOverwrite,
		Metrics:        m,
		Logger:         logger,
	})
	return a, nil
}

// CacheEnabled reports whether search results are cached in Redis.
func (a *App) CacheEnabled() bool {
	return a.redis != nil
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
