package transcription

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"jamesfarrell.me/video-library/internal/storage/models"
)

const (
	FormatVerboseJSON = "verbose_json"
	FormatVTT         = "vtt"
)

// Transcriber turns an audio artifact into a timestamped transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Format is verbose_json for OpenAI, vtt for Whisper-compatible
	// providers that only return WebVTT (e.g. Lemonfox).
	Format   string
	Language string
	Logger   zerolog.Logger
}

type Service struct {
	client   *openai.Client
	model    string
	format   string
	language string
	log      zerolog.Logger
}

func NewService(cfg Config) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return NewServiceWithClient(openai.NewClientWithConfig(clientCfg), cfg)
}

func NewServiceWithClient(client *openai.Client, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Format == "" {
		cfg.Format = FormatVerboseJSON
	}
	return &Service{
		client:   client,
		model:    cfg.Model,
		format:   cfg.Format,
		language: cfg.Language,
		log:      cfg.Logger.With().Str("component", "transcription").Logger(),
	}
}

func (s *Service) Transcribe(ctx context.Context, audioPath string) (*models.Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("error reading audio file: %w", err)
	}

	req := openai.AudioRequest{
		Model:    s.model,
		FilePath: audioPath,
		Language: s.language,
	}
	switch s.format {
	case FormatVTT:
		req.Format = openai.AudioResponseFormatVTT
	default:
		req.Format = openai.AudioResponseFormatVerboseJSON
		req.TimestampGranularities = []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
		}
	}

	s.log.Info().Str("audio", audioPath).Str("model", s.model).Str("format", s.format).Msg("sending audio for transcription")
	resp, err := s.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	var transcript *models.Transcript
	if s.format == FormatVTT {
		segments, err := ParseVTT(resp.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse VTT: %w", err)
		}
		transcript = models.NewTranscript("", segments)
	} else {
		segments := make([]models.Segment, 0, len(resp.Segments))
		for _, seg := range resp.Segments {
			segments = append(segments, models.Segment{
				Start: seg.Start,
				End:   seg.End,
				Text:  seg.Text,
			})
		}
		transcript = models.NewTranscript(strings.TrimSpace(resp.Text), segments)
	}

	s.log.Info().Int("segments", len(transcript.Segments)).Msg("transcription received")
	return transcript, nil
}
