package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jamesfarrell.me/video-library/internal/acquisition"
	"jamesfarrell.me/video-library/internal/api/handlers"
	"jamesfarrell.me/video-library/internal/api/middleware"
	"jamesfarrell.me/video-library/internal/library"
	"jamesfarrell.me/video-library/internal/metrics"
	"jamesfarrell.me/video-library/internal/search"
	"jamesfarrell.me/video-library/internal/storage/flatfile"
	"jamesfarrell.me/video-library/internal/storage/models"
)

type fakeLibrary struct {
	videos      []string
	transcripts map[string]*models.Transcript
	videoFiles  map[string]string
	addErr      error
	results     []models.SearchResult
	searchErr   error
	lastQuery   string
}

func (f *fakeLibrary) AddVideo(_ context.Context, url, name string) (*library.AddResult, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.videos = append(f.videos, name)
	return &library.AddResult{Name: name, AudioSizeMB: 3.25}, nil
}

func (f *fakeLibrary) ListVideos() ([]string, error) {
	return f.videos, nil
}

func (f *fakeLibrary) Transcript(name string) (*models.Transcript, bool, error) {
	t, ok := f.transcripts[name]
	return t, ok, nil
}

func (f *fakeLibrary) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	f.lastQuery = query
	if strings.TrimSpace(query) == "" {
		return nil, search.ErrEmptyQuery
	}
	return f.results, f.searchErr
}

func (f *fakeLibrary) Playback(name string, ts float64) (*models.Playback, error) {
	path, ok := f.videoFiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", library.ErrVideoFileNotFound, name)
	}
	return models.NewPlayback(name, path, ts), nil
}

func newTestRouter(t *testing.T, lib *fakeLibrary) (http.Handler, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	return NewRouter(lib, RouterConfig{Logger: zerolog.Nop(), Metrics: m, Gatherer: reg}), m
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndRequestID(t *testing.T) {
	h, m := newTestRouter(t, &fakeLibrary{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/health", "200")))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, &fakeLibrary{})
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "videolib_http_requests_total")
}

func TestListVideos(t *testing.T) {
	h, _ := newTestRouter(t, &fakeLibrary{videos: []string{"cats-compilation", "dog-tricks", "cat-facts"}})

	rec := do(t, h, http.MethodGet, "/videos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all models.VideoListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 3, all.Count)
	assert.Equal(t, []string{"cats-compilation", "dog-tricks", "cat-facts"}, all.Videos)

	rec = do(t, h, http.MethodGet, "/videos?filter=CAT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered models.VideoListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Equal(t, []string{"cats-compilation", "cat-facts"}, filtered.Videos)
	assert.Equal(t, 2, filtered.Count)
}

func TestAddVideo(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		addErr     error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "created",
			body:       `{"url":"https://example.com/v","name":"demo"}`,
			wantStatus: http.StatusCreated,
			wantBody:   `"audioSizeMB":3.25`,
		},
		{
			name:       "bad json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid name",
			body:       `{"url":"https://example.com/v","name":"../x"}`,
			addErr:     fmt.Errorf("%w: bad", flatfile.ErrInvalidName),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "exists",
			body:       `{"url":"https://example.com/v","name":"demo"}`,
			addErr:     fmt.Errorf("%w: demo", library.ErrVideoExists),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "too large",
			body:       `{"url":"https://example.com/v","name":"demo"}`,
			addErr:     fmt.Errorf("%w: %w", library.ErrAcquisition, &acquisition.TooLargeError{SizeMB: 31.4, LimitMB: 25}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   "File too large (31.4 MB). Limit: 25 MB",
		},
		{
			name:       "download failed",
			body:       `{"url":"https://example.com/v","name":"demo"}`,
			addErr:     fmt.Errorf("%w: yt-dlp exit 1", library.ErrAcquisition),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "transcription failed",
			body:       `{"url":"https://example.com/v","name":"demo"}`,
			addErr:     fmt.Errorf("%w: 401", library.ErrTranscription),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "storage failed",
			body:       `{"url":"https://example.com/v","name":"demo"}`,
			addErr:     fmt.Errorf("%w: disk full", library.ErrStorage),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestRouter(t, &fakeLibrary{addErr: tt.addErr})
			rec := do(t, h, http.MethodPost, "/videos", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestGetTranscript(t *testing.T) {
	lib := &fakeLibrary{transcripts: map[string]*models.Transcript{
		"demo": models.NewTranscript("", []models.Segment{{Start: 0, End: 2, Text: "hi"}}),
	}}
	h, _ := newTestRouter(t, lib)

	rec := do(t, h, http.MethodGet, "/videos/demo/transcript", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Transcript
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "hi", got.Text)
	assert.Len(t, got.Segments, 1)

	rec = do(t, h, http.MethodGet, "/videos/other/transcript", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	lib := &fakeLibrary{results: []models.SearchResult{
		{Video: "a", RawText: "[12.5s]: cat", Timestamps: []models.Match{{Timestamp: 12.5, Description: "cat"}}},
		{Video: "b", Timestamps: []models.Match{}, Error: "rate limited"},
	}}
	h, _ := newTestRouter(t, lib)

	rec := do(t, h, http.MethodPost, "/search", `{"query":"cat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 12.5, resp.Results[0].Timestamps[0].Timestamp)
	assert.True(t, resp.Results[1].Failed())
	assert.Equal(t, "cat", lib.lastQuery)

	rec = do(t, h, http.MethodPost, "/search", `{"query":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a search query")

	lib.results = nil
	rec = do(t, h, http.MethodPost, "/search", `{"query":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestPlaybackAndStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))
	h, _ := newTestRouter(t, &fakeLibrary{videoFiles: map[string]string{"demo": path}})

	rec := do(t, h, http.MethodGet, "/videos/demo/playback?t=75.9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var pb handlers.PlaybackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pb))
	assert.Equal(t, handlers.PlaybackResponse{
		Video:        "demo",
		StartSeconds: 75,
		Label:        "1:15",
		StreamURL:    "/videos/demo/video#t=75",
	}, pb)

	rec = do(t, h, http.MethodGet, "/videos/demo/playback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"startSeconds":0`)

	rec = do(t, h, http.MethodGet, "/videos/demo/playback?t=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/videos/missing/playback?t=3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Video file not found")

	req := httptest.NewRequest(http.MethodGet, "/videos/demo/video", nil)
	req.Header.Set("Range", "bytes=2-4")
	stream := httptest.NewRecorder()
	h.ServeHTTP(stream, req)
	assert.Equal(t, http.StatusPartialContent, stream.Code)
	assert.Equal(t, "234", stream.Body.String())

	rec = do(t, h, http.MethodGet, "/videos/missing/video", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
