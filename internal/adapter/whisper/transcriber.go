package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const source = "transcription"

// ErrEmptyAudio is returned before calling the API with no audio
var ErrEmptyAudio = errors.New("empty audio")

type Config struct {
	APIKey   string
	BaseURL  string // OpenAI-compatible endpoint, empty for api.openai.com
	Model    string
	Language string // used when the request carries none
}

// Transcriber turns recorded recitations into text with a Whisper model
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("whisper API key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &Transcriber{
		client:   openai.NewClientWithConfig(config),
		model:    model,
		language: cfg.Language,
	}, nil
}

// Transcribe sends the audio to the transcription endpoint. The reference
// verse is deliberately not passed as a prompt so it cannot steer the
// transcript towards a perfect score.
func (t *Transcriber) Transcribe(ctx context.Context, req domain.TranscriptionRequest) (*domain.Transcription, error) {
	if len(req.Audio) == 0 {
		return nil, ErrEmptyAudio
	}

	filename := req.Filename
	if filename == "" || filepath.Ext(filename) == "" {
		filename = "audio.webm"
	}
	language := req.Language
	if language == "" {
		language = t.language
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		Reader:   bytes.NewReader(req.Audio),
		FilePath: filename,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &domain.Transcription{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return domain.NewFetchError(source, fmt.Errorf("rate limited: %w", err))
		case apiErr.HTTPStatusCode >= 500:
			return domain.NewFetchError(source, fmt.Errorf("service unavailable: %w", err))
		}
	}
	return domain.NewFetchError(source, err)
}
