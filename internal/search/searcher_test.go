package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jamesfarrell.me/video-library/internal/metrics"
	"jamesfarrell.me/video-library/internal/storage/models"
)

type fakeSource struct {
	names       []string
	transcripts map[string]*models.Transcript
	loadErr     map[string]error
	listErr     error
}

func (f *fakeSource) ListVideos() ([]string, error) {
	return f.names, f.listErr
}

func (f *fakeSource) GetTranscript(name string) (*models.Transcript, bool, error) {
	if err := f.loadErr[name]; err != nil {
		return nil, false, err
	}
	t, ok := f.transcripts[name]
	return t, ok, nil
}

type fakeMatcher struct {
	responses map[string]string
	errs      map[string]error
	delays    map[string]time.Duration

	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

// the rendered transcript text is used as the video key
func (f *fakeMatcher) Match(ctx context.Context, query, rendered string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, rendered)
	f.mu.Unlock()

	if d := f.delays[rendered]; d > 0 {
		time.Sleep(d)
	}
	if err := f.errs[rendered]; err != nil {
		return "", err
	}
	return f.responses[rendered], nil
}

func (f *fakeMatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// transcriptFor returns a transcript whose rendered form is "[0.0s]: <name>".
func transcriptFor(name string) *models.Transcript {
	return &models.Transcript{Text: name, Segments: []models.Segment{{Start: 0, End: 1, Text: name}}}
}

func renderedFor(name string) string {
	return "[0.0s]: " + name
}

func newTestSearcher(src TranscriptSource, m Matcher, cfg Config) *Searcher {
	cfg.Logger = zerolog.Nop()
	return NewSearcher(src, m, cfg)
}

func TestSearch_SkipsVideosWithoutTranscript(t *testing.T) {
	src := &fakeSource{
		names:       []string{"A", "B"},
		transcripts: map[string]*models.Transcript{"A": transcriptFor("A")},
	}
	m := &fakeMatcher{responses: map[string]string{renderedFor("A"): "[0.0s]: about A"}}

	results, err := newTestSearcher(src, m, Config{}).Search(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Video)
	assert.Equal(t, []models.Match{{Timestamp: 0, Description: "about A"}}, results[0].Timestamps)
	assert.Equal(t, 1, m.callCount())
}

func TestSearch_MatchFailureIsContained(t *testing.T) {
	src := &fakeSource{
		names:       []string{"A", "B"},
		transcripts: map[string]*models.Transcript{"A": transcriptFor("A"), "B": transcriptFor("B")},
	}
	m := &fakeMatcher{
		responses: map[string]string{renderedFor("B"): "[3s]: B moment"},
		errs:      map[string]error{renderedFor("A"): errors.New("rate limited")},
	}

	results, err := newTestSearcher(src, m, Config{}).Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "A", results[0].Video)
	assert.True(t, results[0].Failed())
	assert.Contains(t, results[0].Error, "rate limited")
	assert.Empty(t, results[0].Timestamps)

	assert.Equal(t, "B", results[1].Video)
	assert.False(t, results[1].Failed())
	assert.Equal(t, []models.Match{{Timestamp: 3, Description: "B moment"}}, results[1].Timestamps)
}

func TestSearch_TranscriptLoadFailureIsContained(t *testing.T) {
	src := &fakeSource{
		names:       []string{"A", "B"},
		transcripts: map[string]*models.Transcript{"B": transcriptFor("B")},
		loadErr:     map[string]error{"A": errors.New("corrupt transcript")},
	}
	m := &fakeMatcher{responses: map[string]string{renderedFor("B"): "nothing relevant"}}

	results, err := newTestSearcher(src, m, Config{}).Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Failed())
	assert.Equal(t, "nothing relevant", results[1].RawText)
	assert.Empty(t, results[1].Timestamps)
	assert.NotNil(t, results[1].Timestamps)
}

func TestSearch_ResultsFollowIndexOrder(t *testing.T) {
	names := []string{"X", "Y", "Z"}
	src := &fakeSource{names: names, transcripts: map[string]*models.Transcript{}}
	m := &fakeMatcher{responses: map[string]string{}, delays: map[string]time.Duration{}}
	for i, n := range names {
		src.transcripts[n] = transcriptFor(n)
		m.responses[renderedFor(n)] = "[1s]: " + n
		// X finishes last, Z first
		m.delays[renderedFor(n)] = time.Duration(len(names)-i) * 20 * time.Millisecond
	}

	results, err := newTestSearcher(src, m, Config{Concurrency: 3}).Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, n := range names {
		assert.Equal(t, n, results[i].Video)
	}
}

func TestSearch_ConcurrencyCap(t *testing.T) {
	src := &fakeSource{transcripts: map[string]*models.Transcript{}}
	m := &fakeMatcher{responses: map[string]string{}, delays: map[string]time.Duration{}}
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		src.names = append(src.names, n)
		src.transcripts[n] = transcriptFor(n)
		m.delays[renderedFor(n)] = 10 * time.Millisecond
	}

	results, err := newTestSearcher(src, m, Config{Concurrency: 2}).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, m.maxSeen.Load(), int32(2))
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := newTestSearcher(&fakeSource{}, &fakeMatcher{}, Config{}).Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_EmptyLibrary(t *testing.T) {
	results, err := newTestSearcher(&fakeSource{names: []string{}}, &fakeMatcher{}, Config{}).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ListFailurePropagates(t *testing.T) {
	src := &fakeSource{listErr: errors.New("index unreadable")}
	_, err := newTestSearcher(src, &fakeMatcher{}, Config{}).Search(context.Background(), "q")
	assert.ErrorContains(t, err, "index unreadable")
}

func TestSearch_Cancelled(t *testing.T) {
	src := &fakeSource{names: []string{"A"}, transcripts: map[string]*models.Transcript{"A": transcriptFor("A")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSearcher(src, &fakeMatcher{}, Config{}).Search(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingMatcher struct{}

func (panickingMatcher) Match(context.Context, string, string) (string, error) {
	panic("boom")
}

func TestSearch_MatcherPanicIsContained(t *testing.T) {
	src := &fakeSource{names: []string{"A"}, transcripts: map[string]*models.Transcript{"A": transcriptFor("A")}}
	results, err := newTestSearcher(src, panickingMatcher{}, Config{}).Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())
}

func TestSearch_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := &fakeSource{names: []string{"A"}, transcripts: map[string]*models.Transcript{"A": transcriptFor("A")}}
	m := &fakeMatcher{responses: map[string]string{renderedFor("A"): "[0s]: cached moment"}}
	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	s := newTestSearcher(src, m, Config{Cache: NewRedisCache(client, time.Hour), Metrics: met})

	first, err := s.Search(context.Background(), "q")
	require.NoError(t, err)
	second, err := s.Search(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, m.callCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(met.MatchCalls.WithLabelValues(metrics.OutcomeCached)))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.MatchCalls.WithLabelValues(metrics.OutcomeSuccess)))
	assert.True(t, mr.Exists(CacheKey("q", renderedFor("A"))))
	assert.Equal(t, time.Hour, mr.TTL(CacheKey("q", renderedFor("A"))))

	// a different query misses
	_, err = s.Search(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, 2, m.callCount())
}

func TestSearch_CacheOutageFallsBackToMatcher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	src := &fakeSource{names: []string{"A"}, transcripts: map[string]*models.Transcript{"A": transcriptFor("A")}}
	m := &fakeMatcher{responses: map[string]string{renderedFor("A"): "[2s]: live"}}

	results, err := newTestSearcher(src, m, Config{Cache: NewRedisCache(client, time.Minute)}).Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []models.Match{{Timestamp: 2, Description: "live"}}, results[0].Timestamps)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := ConnectRedis(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = ConnectRedis(context.Background(), RedisOptions{Addr: mr.Addr()})
	assert.Error(t, err)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("q", "r"), CacheKey("q", "r"))
	assert.NotEqual(t, CacheKey("q", "r"), CacheKey("q", "r2"))
	assert.NotEqual(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
}

func TestChatMatcher(t *testing.T) {
	var prompt, model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.Unmarshal(body, &req)) && assert.Len(t, req.Messages, 1) {
			prompt = req.Messages[0].Content
			model = req.Model
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"[0.0s]: hello world"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m := NewChatMatcher(ChatMatcherConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	raw, err := m.Match(context.Background(), "greeting", "[0.0s]: hello\n[1.0s]: world")
	require.NoError(t, err)

	assert.Equal(t, "[0.0s]: hello world", raw)
	assert.Equal(t, "gpt-4", model)
	assert.Contains(t, prompt, `"greeting"`)
	assert.Contains(t, prompt, "[1.0s]: world")
}

func TestChatMatcher_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	m := NewChatMatcher(ChatMatcherConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	_, err := m.Match(context.Background(), "q", "")
	assert.ErrorContains(t, err, "slow down")
}
