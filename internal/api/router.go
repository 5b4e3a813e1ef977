package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jamesfarrell.me/video-library/internal/api/handlers"
	"jamesfarrell.me/video-library/internal/api/middleware"
	"jamesfarrell.me/video-library/internal/metrics"
)

type RouterConfig struct {
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(lib handlers.Library, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog(cfg.Logger, cfg.Metrics))

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	videoHandler := handlers.NewVideoHandler(lib, cfg.Logger)
	searchHandler := handlers.NewSearchHandler(videoHandler)

	// Video routes
	videos := r.PathPrefix("/videos").Subrouter()
	videos.HandleFunc("", videoHandler.ListVideos).Methods(http.MethodGet)
	videos.HandleFunc("", videoHandler.AddVideo).Methods(http.MethodPost)
	videos.HandleFunc("/{name}/transcript", videoHandler.GetTranscript).Methods(http.MethodGet)
	videos.HandleFunc("/{name}/playback", videoHandler.GetPlayback).Methods(http.MethodGet)
	videos.HandleFunc("/{name}/video", videoHandler.StreamVideo).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/search", searchHandler.Search).Methods(http.MethodPost)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
