package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

func newTestTranscriber(t *testing.T, handler http.HandlerFunc) *Transcriber {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tr, err := NewTranscriber(Config{
		APIKey:   "test-key",
		BaseURL:  server.URL + "/v1",
		Language: "ar",
	})
	require.NoError(t, err)
	return tr
}

func TestTranscriber_HappyPath(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ar", r.FormValue("language"))
		assert.Empty(t, r.FormValue("prompt"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "voice.ogg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("OggS fake"), data)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"task":     "transcribe",
			"language": "arabic",
			"duration": 3.5,
			"text":     "قل هو الله احد",
		})
	}

	tr := newTestTranscriber(t, handler)
	got, err := tr.Transcribe(context.Background(), domain.TranscriptionRequest{
		Audio:    []byte("OggS fake"),
		Filename: "voice.ogg",
	})
	require.NoError(t, err)
	assert.Equal(t, "قل هو الله احد", got.Text)
	assert.Equal(t, "arabic", got.Language)
	assert.InDelta(t, 3.5, got.Duration, 0.001)
}

func TestTranscriber_RequestLanguageWins(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "id", r.FormValue("language"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "audio.webm", header.Filename)

		_ = json.NewEncoder(w).Encode(map[string]any{"text": "ok"})
	}

	tr := newTestTranscriber(t, handler)
	_, err := tr.Transcribe(context.Background(), domain.TranscriptionRequest{
		Audio:    []byte{1, 2, 3},
		Language: "id",
	})
	require.NoError(t, err)
}

func TestTranscriber_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limit", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
		{"bad request", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"type": "error", "message": tt.name},
				})
			}

			tr := newTestTranscriber(t, handler)
			_, err := tr.Transcribe(context.Background(), domain.TranscriptionRequest{Audio: []byte{1}})
			require.ErrorIs(t, err, domain.ErrFetchFailed)

			var fe *domain.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "transcription", fe.Source)
		})
	}
}

func TestTranscriber_EmptyAudio(t *testing.T) {
	called := false
	tr := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := tr.Transcribe(context.Background(), domain.TranscriptionRequest{})
	require.ErrorIs(t, err, ErrEmptyAudio)
	assert.False(t, called)
}

func TestNewTranscriber_RequiresKey(t *testing.T) {
	_, err := NewTranscriber(Config{})
	require.Error(t, err)
}
