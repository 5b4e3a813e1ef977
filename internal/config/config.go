// Package config loads the video library configuration. Sources are applied
// in order, later ones winning: defaults, a .env file, an optional YAML file,
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir             = "video_data"
	DefaultListenAddr          = ":8080"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "console"
	DefaultMaxAudioMB          = 25.0
	DefaultTranscriptionModel  = "whisper-1"
	DefaultTranscriptionFormat = "verbose_json"
	DefaultMatchModel          = "gpt-4"
	DefaultTopN                = 3
	DefaultSearchConcurrency   = 4
	DefaultCacheTTL            = 24 * time.Hour
	DefaultYtDlpPath           = "yt-dlp"
)

type OpenAIConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	TranscriptionModel  string `yaml:"transcription_model"`
	TranscriptionFormat string `yaml:"transcription_format"`
	Language            string `yaml:"language"`
	MatchModel          string `yaml:"match_model"`
	TopN                int    `yaml:"top_n"`
}

type YtDlpConfig struct {
	Path        string `yaml:"path"`
	AudioFormat string `yaml:"audio_format"`
	VideoFormat string `yaml:"video_format"`
}

type SearchConfig struct {
	Concurrency int           `yaml:"concurrency"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// RedisConfig enables the match cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Config struct {
	DataDir        string       `yaml:"data_dir"`
	ListenAddr     string       `yaml:"listen_addr"`
	LogLevel       string       `yaml:"log_level"`
	LogFormat      string       `yaml:"log_format"`
	MaxAudioMB     float64      `yaml:"max_audio_mb"`
	AllowOverwrite bool         `yaml:"allow_overwrite"`
	OpenAI         OpenAIConfig `yaml:"openai"`
	YtDlp          YtDlpConfig  `yaml:"ytdlp"`
	Search         SearchConfig `yaml:"search"`
	Redis          RedisConfig  `yaml:"redis"`

	// Player is an mpv-compatible binary the shell launches for playback.
	// Empty prints the file and start offset instead.
	Player string `yaml:"player"`
}

func Default() *Config {
	return &Config{
		DataDir:        DefaultDataDir,
		ListenAddr:     DefaultListenAddr,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		MaxAudioMB:     DefaultMaxAudioMB,
		AllowOverwrite: true,
		OpenAI: OpenAIConfig{
			TranscriptionModel:  DefaultTranscriptionModel,
			TranscriptionFormat: DefaultTranscriptionFormat,
			MatchModel:          DefaultMatchModel,
			TopN:                DefaultTopN,
		},
		YtDlp: YtDlpConfig{
			Path: DefaultYtDlpPath,
		},
		Search: SearchConfig{
			Concurrency: DefaultSearchConcurrency,
			CacheTTL:    DefaultCacheTTL,
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it, a missing named file is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	setString("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	setString("VIDEOLIB_DATA_DIR", &cfg.DataDir)
	setString("VIDEOLIB_LISTEN_ADDR", &cfg.ListenAddr)
	setString("VIDEOLIB_LANGUAGE", &cfg.OpenAI.Language)
	setString("VIDEOLIB_TRANSCRIPTION_FORMAT", &cfg.OpenAI.TranscriptionFormat)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOG_FORMAT", &cfg.LogFormat)
	setString("YTDLP_PATH", &cfg.YtDlp.Path)
	setString("VIDEOLIB_PLAYER", &cfg.Player)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)

	if v := os.Getenv("VIDEOLIB_MAX_AUDIO_MB"); v != "" {
		mb, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("VIDEOLIB_MAX_AUDIO_MB: %w", err)
		}
		cfg.MaxAudioMB = mb
	}
	if v := os.Getenv("VIDEOLIB_ALLOW_OVERWRITE"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VIDEOLIB_ALLOW_OVERWRITE: %w", err)
		}
		cfg.AllowOverwrite = allow
	}
	if v := os.Getenv("VIDEOLIB_SEARCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VIDEOLIB_SEARCH_CONCURRENCY: %w", err)
		}
		cfg.Search.Concurrency = n
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	return nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.OpenAI.TranscriptionFormat = strings.ToLower(strings.TrimSpace(c.OpenAI.TranscriptionFormat))
	c.OpenAI.BaseURL = strings.TrimRight(c.OpenAI.BaseURL, "/")
	if c.YtDlp.Path == "" {
		c.YtDlp.Path = DefaultYtDlpPath
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if c.MaxAudioMB <= 0 {
		return fmt.Errorf("max_audio_mb must be positive, got %g", c.MaxAudioMB)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	switch c.OpenAI.TranscriptionFormat {
	case "verbose_json", "vtt":
	default:
		return fmt.Errorf("openai.transcription_format must be verbose_json or vtt, got %q", c.OpenAI.TranscriptionFormat)
	}
	if c.OpenAI.TopN <= 0 {
		return fmt.Errorf("openai.top_n must be positive, got %d", c.OpenAI.TopN)
	}
	if c.Search.Concurrency <= 0 {
		return fmt.Errorf("search.concurrency must be positive, got %d", c.Search.Concurrency)
	}
	if c.Search.CacheTTL < 0 {
		return fmt.Errorf("search.cache_ttl must not be negative, got %s", c.Search.CacheTTL)
	}
	return nil
}

// JSONLogs reports whether logs should be written as JSON.
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}
