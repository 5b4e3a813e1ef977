// Package metrics holds the Prometheus collectors for the video library.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "videolib"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeTooLarge = "too_large"
	OutcomeCached   = "cached"
)

type Metrics struct {
	VideosAdded   *prometheus.CounterVec
	Searches      prometheus.Counter
	MatchCalls    *prometheus.CounterVec
	MatchDuration prometheus.Histogram
	HTTPRequests  *prometheus.CounterVec
	LibraryVideos prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VideosAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_added_total",
			Help:      "Add-video attempts by outcome",
		}, []string{"outcome"}),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Cross-library searches executed",
		}),
		MatchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_calls_total",
			Help:      "Per-video matching calls by outcome",
		}, []string{"outcome"}),
		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Latency of matching service calls",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		LibraryVideos: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_videos",
			Help:      "Videos currently in the library index",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.VideosAdded,
			m.Searches,
			m.MatchCalls,
			m.MatchDuration,
			m.HTTPRequests,
			m.LibraryVideos,
		)
	}
	return m
}

func (m *Metrics) VideoAdded(outcome string) {
	if m == nil {
		return
	}
	m.VideosAdded.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SearchStarted() {
	if m == nil {
		return
	}
	m.Searches.Inc()
}

func (m *Metrics) MatchCall(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MatchCalls.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCached {
		m.MatchDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) HTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}

func (m *Metrics) SetLibrarySize(n int) {
	if m == nil {
		return
	}
	m.LibraryVideos.Set(float64(n))
}
