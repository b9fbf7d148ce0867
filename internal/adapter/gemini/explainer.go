package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const (
	source       = "explainer"
	defaultModel = "gemini-2.5-flash"
)

// ErrEmptyAnswer is returned when the model produced no text
var ErrEmptyAnswer = errors.New("empty answer")

var languageNames = map[domain.Language]string{
	domain.LangEnglish:    "English",
	domain.LangArabic:     "Arabic",
	domain.LangIndonesian: "Indonesian",
}

type Config struct {
	APIKey      string
	BaseURL     string // empty for the public Gemini API
	Model       string
	Temperature float32
}

// Explainer answers questions about verses and tajweed rules with Gemini
type Explainer struct {
	models      *genai.Models
	model       string
	temperature float32
}

func NewExplainer(ctx context.Context, cfg Config) (*Explainer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Explainer{
		models:      client.Models,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

// Explain asks the model a question, grounded on verseContext when it is set
func (e *Explainer) Explain(ctx context.Context, question, verseContext string, lang domain.Language) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction(lang)}},
		},
	}
	if e.temperature > 0 {
		temp := e.temperature
		config.Temperature = &temp
	}

	result, err := e.models.GenerateContent(ctx, e.model, genai.Text(buildPrompt(question, verseContext)), config)
	if err != nil {
		return "", mapError(err)
	}

	answer := strings.TrimSpace(result.Text())
	if answer == "" {
		return "", domain.NewFetchError(source, ErrEmptyAnswer)
	}

	return answer, nil
}

func systemInstruction(lang domain.Language) string {
	name, ok := languageNames[lang]
	if !ok {
		name = languageNames[domain.LangEnglish]
	}

	return "You are a patient Quran recitation tutor specialised in tajweed and tafsir. " +
		"Answer in " + name + " in a polite, clear and encouraging tone. " +
		"When a verse is given, explain its meaning, the occasion of revelation if one is known, " +
		"and the lesson a modern reader can take from it. " +
		"When a tajweed rule is asked about, explain how it is pronounced and why it applies in that verse. " +
		"Only rely on authentic sources and keep the answer under 200 words."
}

func buildPrompt(question, verseContext string) string {
	if verseContext == "" {
		return question
	}
	return "Verse context: " + verseContext + "\n\nQuestion: " + question
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return domain.NewFetchError(source, fmt.Errorf("rate limited: %w", err))
		case apiErr.Code >= 500:
			return domain.NewFetchError(source, fmt.Errorf("service unavailable: %w", err))
		}
	}
	return domain.NewFetchError(source, err)
}
