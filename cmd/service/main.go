package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jamesfarrell.me/video-library/internal/api"
	"jamesfarrell.me/video-library/internal/app"
	"jamesfarrell.me/video-library/internal/config"
	"jamesfarrell.me/video-library/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		JSON:    cfg.JSONLogs(),
		Service: "video-library",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize library")
	}
	defer a.Close()

	if err := a.YtDlp.CheckBinary(); err != nil {
		logger.Warn().Err(err).Msg("yt-dlp not available, adding videos will fail")
	}

	router := api.NewRouter(a.Library, api.RouterConfig{
		Logger:   logger,
		Metrics:  a.Metrics,
		Gatherer: a.Registry,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	logger.Info().Str("addr", cfg.ListenAddr).Str("data_dir", cfg.DataDir).Msg("starting HTTP server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("HTTP server error")
	}
	logger.Info().Msg("HTTP server stopped")
}
