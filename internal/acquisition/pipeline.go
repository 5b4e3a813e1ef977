// Package acquisition fetches the audio and video artifacts of a source URL.
// Audio is fetched first and measured; the video is only fetched when the
// audio fits under the transcription size ceiling.
package acquisition

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAudioMB is the upload limit of the transcription API.
	DefaultMaxAudioMB = 25.0

	bytesPerMB = 1024 * 1024
)

// TooLargeError reports an audio artifact above the size ceiling.
type TooLargeError struct {
	SizeMB  float64
	LimitMB float64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("File too large (%.1f MB). Limit: %g MB", e.SizeMB, e.LimitMB)
}

// Artifacts are the local files produced for one video. They sit in a
// staging directory until the caller commits or discards them.
type Artifacts struct {
	Dir         string
	AudioPath   string
	VideoPath   string
	AudioSizeMB float64
}

// Layout decides where a video's artifacts are staged while they are fetched.
type Layout interface {
	StageVideoDir(name string) (string, error)
	DiscardStage(dir string) error
	AudioFileName(ext string) string
	VideoFileName() string
}

type Pipeline struct {
	downloader Downloader
	layout     Layout
	maxAudioMB float64
	audioExt   string
	log        zerolog.Logger
}

type PipelineConfig struct {
	MaxAudioMB float64
	AudioExt   string
	Logger     zerolog.Logger
}

func NewPipeline(downloader Downloader, layout Layout, cfg PipelineConfig) *Pipeline {
	if cfg.MaxAudioMB <= 0 {
		cfg.MaxAudioMB = DefaultMaxAudioMB
	}
	if cfg.AudioExt == "" {
		cfg.AudioExt = "m4a"
	}
	return &Pipeline{
		downloader: downloader,
		layout:     layout,
		maxAudioMB: cfg.MaxAudioMB,
		audioExt:   strings.TrimPrefix(cfg.AudioExt, "."),
		log:        cfg.Logger.With().Str("component", "acquisition").Logger(),
	}
}

func (p *Pipeline) MaxAudioMB() float64 {
	return p.maxAudioMB
}

// Acquire downloads the audio for sourceURL into a fresh staging directory,
// checks it against the size ceiling and then downloads the video. An
// oversized audio file is reported as *TooLargeError without fetching the
// video. On any error the staging directory is removed; on success the caller
// owns it.
func (p *Pipeline) Acquire(ctx context.Context, sourceURL, name string) (art *Artifacts, err error) {
	if !IsSupportedURL(sourceURL) {
		return nil, fmt.Errorf("unsupported source URL %q", sourceURL)
	}
	dir, err := p.layout.StageVideoDir(name)
	if err != nil {
		return nil, err
	}
	log := p.log.With().Str("video", name).Logger()

	defer func() {
		if err == nil {
			return
		}
		if rmErr := p.layout.DiscardStage(dir); rmErr != nil {
			log.Warn().Err(rmErr).Msg("failed to remove staged artifacts")
		}
	}()

	audioPath := filepath.Join(dir, p.layout.AudioFileName(p.audioExt))

	log.Info().Str("url", sourceURL).Msg("downloading audio")
	if err := p.downloader.DownloadAudio(ctx, sourceURL, audioPath); err != nil {
		return nil, fmt.Errorf("audio download failed: %w", err)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio artifact missing after download: %w", err)
	}
	sizeMB := float64(info.Size()) / bytesPerMB

	if sizeMB > p.maxAudioMB {
		log.Warn().Float64("size_mb", sizeMB).Float64("limit_mb", p.maxAudioMB).Msg("audio too large, skipping video download")
		return nil, &TooLargeError{SizeMB: sizeMB, LimitMB: p.maxAudioMB}
	}

	videoPath := filepath.Join(dir, p.layout.VideoFileName())
	log.Info().Float64("size_mb", sizeMB).Msg("audio downloaded, downloading video")
	if err := p.downloader.DownloadVideo(ctx, sourceURL, videoPath); err != nil {
		return nil, fmt.Errorf("video download failed: %w", err)
	}

	return &Artifacts{
		Dir:         dir,
		AudioPath:   audioPath,
		VideoPath:   videoPath,
		AudioSizeMB: sizeMB,
	}, nil
}

// Discard removes staged artifacts that will not be committed.
func (p *Pipeline) Discard(a *Artifacts) error {
	if a == nil || a.Dir == "" {
		return nil
	}
	return p.layout.DiscardStage(a.Dir)
}

// IsSupportedURL accepts absolute http(s) URLs with a host.
func IsSupportedURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
