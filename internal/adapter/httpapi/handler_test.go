package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
	"github.com/escalopa/tajweed-bot/internal/recitation"
	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

const ikhlas = "قُلْ هُوَ اللَّهُ أَحَدٌ"

type fakeGenerator struct {
	q   *tajweed.Question
	err error
}

func (f *fakeGenerator) Generate(context.Context) (*tajweed.Question, error) {
	return f.q, f.err
}

type fakeTranscriber struct {
	text string
	err  error
	got  domain.TranscriptionRequest
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req domain.TranscriptionRequest) (*domain.Transcription, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Transcription{Text: f.text, Language: req.Language}, nil
}

func sampleQuestion() *tajweed.Question {
	return &tajweed.Question{
		SurahNumber:  112,
		AyahNumber:   1,
		VerseText:    ikhlas,
		TargetRuleID: "qalqalah",
		Highlighted:  "دٌ",
		Start:        len(ikhlas) - len("دٌ"),
		End:          len(ikhlas),
		Choices:      []string{"Izhhar", "Qalqalah", "Iqlab", "Ikhfa"},
	}
}

func newTestServer(t *testing.T, gen *fakeGenerator, tr *fakeTranscriber) *httptest.Server {
	t.Helper()

	h := NewHandler(tajweed.Default(), lesson.Default(), gen, tr, zap.NewNop())
	srv := httptest.NewServer(NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestListRules(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	resp, err := http.Get(srv.URL + "/v1/rules")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[rulesResponse](t, resp)
	assert.Len(t, out.Rules, tajweed.Default().Len())
	for _, r := range out.Rules {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Name)
	}
}

func TestAnnotate(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	t.Run("active by default", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/v1/annotate", map[string]any{"text": "مِنْ بَعْدِ"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode[annotateResponse](t, resp)
		assert.Contains(t, out.RuleIDs, "iqlab")
		assert.Equal(t, "مِنْ بَعْدِ", tajweed.Concat(out.Spans))
	})

	t.Run("inactive", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/v1/annotate", map[string]any{"text": "مِنْ بَعْدِ", "active": false})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode[annotateResponse](t, resp)
		require.Len(t, out.Spans, 1)
		assert.Equal(t, tajweed.SpanPlain, out.Spans[0].Kind)
		assert.Empty(t, out.RuleIDs)
	})

	t.Run("bad body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/annotate", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode[errorBody](t, resp).Error, "invalid JSON body")
	})
}

func TestPractice(t *testing.T) {
	t.Run("question", func(t *testing.T) {
		srv := newTestServer(t, &fakeGenerator{q: sampleQuestion()}, &fakeTranscriber{})

		resp, err := http.Get(srv.URL + "/v1/practice")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		q := decode[tajweed.Question](t, resp)
		assert.Equal(t, "qalqalah", q.TargetRuleID)
		assert.Len(t, q.Choices, 4)
	})

	t.Run("no match", func(t *testing.T) {
		srv := newTestServer(t, &fakeGenerator{err: domain.ErrNoMatchFound}, &fakeTranscriber{})

		resp, err := http.Get(srv.URL + "/v1/practice")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		srv := newTestServer(t, &fakeGenerator{err: errors.New("secret detail")}, &fakeTranscriber{})

		resp, err := http.Get(srv.URL + "/v1/practice")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, decode[errorBody](t, resp).Error, "secret")
	})
}

func TestCheckAnswer(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	tests := []struct {
		name    string
		ruleID  string
		chosen  string
		status  int
		correct bool
		xp      int
	}{
		{name: "correct", ruleID: "qalqalah", chosen: "Qalqalah", status: http.StatusOK, correct: true, xp: domain.PracticeXP},
		{name: "wrong", ruleID: "qalqalah", chosen: "Ikhfa", status: http.StatusOK},
		{name: "case sensitive", ruleID: "qalqalah", chosen: "qalqalah", status: http.StatusOK},
		{name: "unknown rule", ruleID: "nope", chosen: "Qalqalah", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuestion()
			q.TargetRuleID = tt.ruleID

			resp := postJSON(t, srv.URL+"/v1/practice/check", checkRequest{Question: *q, Chosen: tt.chosen})
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}

			out := decode[checkResponse](t, resp)
			assert.Equal(t, tt.correct, out.Correct)
			assert.Equal(t, "Qalqalah", out.Answer)
			assert.Equal(t, tt.xp, out.XP)
		})
	}
}

func multipartScore(t *testing.T, url string, audio []byte, fields map[string]string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "voice.ogg")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type scoreBody struct {
	Transcript   string          `json:"transcript"`
	Score        int             `json:"score"`
	Tier         recitation.Tier `json:"tier"`
	EditDistance int             `json:"edit_distance"`
	Feedback     string          `json:"feedback"`
}

func TestScore(t *testing.T) {
	t.Run("perfect recitation", func(t *testing.T) {
		tr := &fakeTranscriber{text: "قل هو الله احد"}
		srv := newTestServer(t, &fakeGenerator{}, tr)

		resp := multipartScore(t, srv.URL+"/v1/score", []byte("OggS"), map[string]string{"referenceText": ikhlas})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		out := decode[scoreBody](t, resp)
		assert.Equal(t, 100, out.Score)
		assert.Equal(t, recitation.TierGood, out.Tier)
		assert.Equal(t, recitation.TierGood.Message(), out.Feedback)

		assert.Equal(t, "ar", tr.got.Language)
		assert.Equal(t, "voice.ogg", tr.got.Filename)
		assert.Equal(t, []byte("OggS"), tr.got.Audio)
	})

	t.Run("language passed through", func(t *testing.T) {
		tr := &fakeTranscriber{text: ""}
		srv := newTestServer(t, &fakeGenerator{}, tr)

		resp := multipartScore(t, srv.URL+"/v1/score", []byte("OggS"), map[string]string{"referenceText": ikhlas, "language": "id"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "id", tr.got.Language)
		assert.Equal(t, 0, decode[scoreBody](t, resp).Score)
	})

	t.Run("missing audio", func(t *testing.T) {
		srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

		resp := multipartScore(t, srv.URL+"/v1/score", nil, map[string]string{"referenceText": ikhlas})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "missing audio file", decode[errorBody](t, resp).Error)
	})

	t.Run("transcription failure", func(t *testing.T) {
		tr := &fakeTranscriber{err: domain.NewFetchError("transcription", errors.New("503"))}
		srv := newTestServer(t, &fakeGenerator{}, tr)

		resp := multipartScore(t, srv.URL+"/v1/score", []byte("OggS"), map[string]string{"referenceText": ikhlas})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestScoreText(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	resp := postJSON(t, srv.URL+"/v1/score/text", scoreTextRequest{ReferenceText: ikhlas, Transcript: ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[scoreBody](t, resp)
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, recitation.TierPoor, out.Tier)
	assert.Equal(t, len([]rune("قل هو الله احد")), out.EditDistance)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/annotate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errBadRequest("x")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrNoMatchFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(domain.NewFetchError("corpus", nil)))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestListLessons(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	resp, err := http.Get(srv.URL + "/v1/lessons?lang=id")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[lessonsResponse](t, resp)
	require.Len(t, out.Lessons, lesson.Default().Len())
	assert.Equal(t, lesson.XP, out.XP)
	first := out.Lessons[0]
	assert.Equal(t, "hijaiyah-1", first.ID)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "Pilar Pertama", first.Title)
	assert.Equal(t, 2, first.StepCount)
}

func TestGetLesson_HidesAnswers(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})

	resp, err := http.Get(srv.URL + "/v1/lessons/kosakata-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	steps, ok := raw["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 4)
	for _, s := range steps {
		step := s.(map[string]any)
		assert.NotContains(t, step, "answer")
		assert.Equal(t, []any{"Allah", "In", "Lord", "Who"}, step["options"])
	}

	missing, err := http.Get(srv.URL + "/v1/lessons/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCheckLessonStep(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{}, &fakeTranscriber{})
	url := srv.URL + "/v1/lessons/hijaiyah-1/check?lang=id"

	tests := []struct {
		name    string
		req     checkLessonRequest
		status  int
		correct bool
		last    bool
	}{
		{name: "right first step", req: checkLessonRequest{Step: 0, Choice: 0}, status: http.StatusOK, correct: true},
		{name: "wrong last step", req: checkLessonRequest{Step: 1, Choice: 2}, status: http.StatusOK, last: true},
		{name: "step out of range", req: checkLessonRequest{Step: 2}, status: http.StatusBadRequest},
		{name: "choice out of range", req: checkLessonRequest{Step: 0, Choice: 3}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, url, tt.req)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}

			out := decode[checkLessonResponse](t, resp)
			assert.Equal(t, tt.correct, out.Correct)
			assert.Equal(t, tt.last, out.Last)
			assert.NotEmpty(t, out.Explanation)
		})
	}

	out := decode[checkLessonResponse](t, postJSON(t, url, checkLessonRequest{Step: 1, Choice: 0}))
	assert.Equal(t, 1, out.Answer)
	assert.Equal(t, "Ba", out.AnswerText)
	assert.Equal(t, "Ba memiliki satu titik di bawah.", out.Explanation)
}
