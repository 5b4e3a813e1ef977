package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"

	"jamesfarrell.me/video-library/internal/acquisition"
	"jamesfarrell.me/video-library/internal/library"
	"jamesfarrell.me/video-library/internal/search"
	"jamesfarrell.me/video-library/internal/storage/flatfile"
	"jamesfarrell.me/video-library/internal/storage/models"
)

// Library is the subset of library.Service the handlers use.
type Library interface {
	AddVideo(ctx context.Context, url, name string) (*library.AddResult, error)
	ListVideos() ([]string, error)
	Transcript(name string) (*models.Transcript, bool, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Playback(name string, timestamp float64) (*models.Playback, error)
}

type PlaybackResponse struct {
	Video        string `json:"video"`
	StartSeconds int    `json:"startSeconds"`
	Label        string `json:"label"`
	StreamURL    string `json:"streamUrl"`
}

type VideoHandler struct {
	lib Library
	log zerolog.Logger
}

func NewVideoHandler(lib Library, logger zerolog.Logger) *VideoHandler {
	return &VideoHandler{lib: lib, log: logger}
}

func (h *VideoHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	var video models.VideoRequest
	if err := json.NewDecoder(r.Body).Decode(&video); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.lib.AddVideo(r.Context(), video.URL, video.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.VideoResponse{
		Name:        res.Name,
		AudioSizeMB: res.AudioSizeMB,
	})
}

// ListVideos returns the library in insertion order. ?filter= narrows it
// to names that fuzzy-match the filter.
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.lib.ListVideos()
	if err != nil {
		h.writeError(w, err)
		return
	}

	if filter := r.URL.Query().Get("filter"); filter != "" {
		matched := make([]string, 0, len(videos))
		for _, v := range videos {
			if fuzzy.MatchFold(filter, v) {
				matched = append(matched, v)
			}
		}
		videos = matched
	}

	writeJSON(w, http.StatusOK, models.VideoListResponse{Videos: videos, Count: len(videos)})
}

func (h *VideoHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	transcript, found, err := h.lib.Transcript(name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "Transcript not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, transcript)
}

func (h *VideoHandler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var ts float64
	if raw := r.URL.Query().Get("t"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid timestamp", http.StatusBadRequest)
			return
		}
		ts = v
	}

	pb, err := h.lib.Playback(name, ts)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PlaybackResponse{
		Video:        pb.Video,
		StartSeconds: pb.StartSeconds,
		Label:        models.FormatTimestamp(float64(pb.StartSeconds)),
		StreamURL:    "/videos/" + url.PathEscape(pb.Video) + "/video#t=" + strconv.Itoa(pb.StartSeconds),
	})
}

// StreamVideo serves the video artifact with range support so players can seek.
func (h *VideoHandler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	pb, err := h.lib.Playback(name, 0)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, pb.Path)
}

func (h *VideoHandler) writeError(w http.ResponseWriter, err error) {
	var tooLarge *acquisition.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		http.Error(w, tooLarge.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, flatfile.ErrInvalidName), errors.Is(err, library.ErrInvalidURL):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, search.ErrEmptyQuery):
		http.Error(w, "Please enter a search query", http.StatusBadRequest)
	case errors.Is(err, library.ErrVideoExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, library.ErrVideoFileNotFound):
		http.Error(w, "Video file not found", http.StatusNotFound)
	case errors.Is(err, library.ErrAcquisition), errors.Is(err, library.ErrTranscription):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.log.Error().Err(err).Msg("request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
