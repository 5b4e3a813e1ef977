package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultAudioFormat = "bestaudio[ext=m4a]/bestaudio"
	DefaultVideoFormat = "best[ext=mp4]"
)

// Downloader fetches media for a source URL into a local file.
type Downloader interface {
	DownloadAudio(ctx context.Context, url, dest string) error
	DownloadVideo(ctx context.Context, url, dest string) error
}

// Options are the yt-dlp flags used for every download.
type Options struct {
	AudioFormat string
	VideoFormat string
	NoConfig    bool
	NoWarnings  bool
	NoPlaylist  bool
}

func DefaultOptions() Options {
	return Options{
		AudioFormat: DefaultAudioFormat,
		VideoFormat: DefaultVideoFormat,
		NoConfig:    true,
		NoWarnings:  true,
		NoPlaylist:  true,
	}
}

// BuildArgs returns the yt-dlp argv (without the binary) for one download.
func (o Options) BuildArgs(format, dest, url string) []string {
	args := make([]string, 0, 10)
	if o.NoConfig {
		args = append(args, "--no-config")
	}
	if o.NoWarnings {
		args = append(args, "--no-warnings")
	}
	if o.NoPlaylist {
		args = append(args, "--no-playlist")
	}
	args = append(args, "--no-progress", "--force-overwrites")
	args = append(args, "-f", format, "-o", dest, url)
	return args
}

// YtDlp runs the yt-dlp binary.
type YtDlp struct {
	Path    string
	Options Options
	log     zerolog.Logger
}

func NewYtDlp(path string, opts Options, logger zerolog.Logger) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = DefaultAudioFormat
	}
	if opts.VideoFormat == "" {
		opts.VideoFormat = DefaultVideoFormat
	}
	return &YtDlp{
		Path:    path,
		Options: opts,
		log:     logger.With().Str("component", "yt-dlp").Logger(),
	}
}

// CheckBinary verifies the binary can be found, either as a path or in PATH.
func (y *YtDlp) CheckBinary() error {
	if strings.ContainsRune(y.Path, os.PathSeparator) {
		info, err := os.Stat(y.Path)
		if err != nil {
			return fmt.Errorf("yt-dlp not found at %s: %w", y.Path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("yt-dlp path %s is a directory", y.Path)
		}
		return nil
	}
	if _, err := exec.LookPath(y.Path); err != nil {
		return fmt.Errorf("yt-dlp not found in PATH: %w", err)
	}
	return nil
}

func (y *YtDlp) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, y.Path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("error running yt-dlp --version: %w, output: %s", err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

func (y *YtDlp) DownloadAudio(ctx context.Context, url, dest string) error {
	return y.run(ctx, y.Options.AudioFormat, dest, url)
}

func (y *YtDlp) DownloadVideo(ctx context.Context, url, dest string) error {
	return y.run(ctx, y.Options.VideoFormat, dest, url)
}

func (y *YtDlp) run(ctx context.Context, format, dest, url string) error {
	args := y.Options.BuildArgs(format, dest, url)
	y.log.Debug().Strs("args", args).Msg("running yt-dlp")

	cmd := exec.CommandContext(ctx, y.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error downloading %s: %w\nstderr: %s", url, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
