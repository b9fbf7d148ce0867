package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
	"github.com/escalopa/tajweed-bot/internal/recitation"
	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

const (
	maxJSONBody    = 1 << 20
	maxAudioUpload = 25 << 20 // Whisper's own upload limit

	defaultScoreLanguage = "ar"
)

// QuestionGenerator builds practice questions
type QuestionGenerator interface {
	Generate(ctx context.Context) (*tajweed.Question, error)
}

// Handler serves the tajweed endpoints used by the web front-end
type Handler struct {
	catalog     *tajweed.Catalog
	lessons     *lesson.Catalog
	generator   QuestionGenerator
	transcriber domain.TranscriberPort
	logger      *zap.Logger
}

func NewHandler(
	catalog *tajweed.Catalog,
	lessons *lesson.Catalog,
	generator QuestionGenerator,
	transcriber domain.TranscriberPort,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		catalog:     catalog,
		lessons:     lessons,
		generator:   generator,
		transcriber: transcriber,
		logger:      logger,
	}
}

type rulesResponse struct {
	Rules []tajweed.Rule `json:"rules"`
}

func (h *Handler) listRules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rulesResponse{Rules: h.catalog.List()})
}

type annotateRequest struct {
	Text   string `json:"text"`
	Active *bool  `json:"active"` // defaults to true
}

type annotateResponse struct {
	Spans   []tajweed.Span `json:"spans"`
	RuleIDs []string       `json:"rule_ids"`
}

func (h *Handler) annotate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[annotateRequest](w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	active := in.Active == nil || *in.Active
	spans := h.catalog.Annotate(in.Text, active)

	ids := tajweed.RuleIDs(spans)
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, annotateResponse{Spans: spans, RuleIDs: ids})
}

func (h *Handler) practice(w http.ResponseWriter, r *http.Request) {
	q, err := h.generator.Generate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type checkRequest struct {
	Question tajweed.Question `json:"question"`
	Chosen   string           `json:"chosen"`
}

type checkResponse struct {
	Correct bool   `json:"correct"`
	Answer  string `json:"answer"`
	XP      int    `json:"xp"`
}

// checkAnswer grades a question the client got from /v1/practice. The
// service keeps no practice state, the client sends the question back.
func (h *Handler) checkAnswer(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[checkRequest](w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rule, ok := h.catalog.Rule(in.Question.TargetRuleID)
	if !ok {
		h.writeError(w, r, errBadRequest("unknown rule "+in.Question.TargetRuleID))
		return
	}

	resp := checkResponse{
		Correct: h.catalog.CheckAnswer(in.Question, in.Chosen),
		Answer:  rule.Name,
	}
	if resp.Correct {
		resp.XP = domain.PracticeXP
	}
	writeJSON(w, http.StatusOK, resp)
}

type scoreResponse struct {
	recitation.Result
	Feedback string `json:"feedback"`
}

func newScoreResponse(res recitation.Result) scoreResponse {
	return scoreResponse{Result: res, Feedback: res.Tier.Message()}
}

// score transcribes a multipart "audio" upload and scores it against
// the "referenceText" field
func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		h.writeError(w, r, errBadRequest("invalid multipart form: "+err.Error()))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.writeError(w, r, errBadRequest("missing audio file"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, errBadRequest("read audio: "+err.Error()))
		return
	}
	if len(audio) == 0 {
		h.writeError(w, r, errBadRequest("empty audio file"))
		return
	}

	lang := strings.TrimSpace(r.FormValue("language"))
	if lang == "" {
		lang = defaultScoreLanguage
	}

	transcription, err := h.transcriber.Transcribe(r.Context(), domain.TranscriptionRequest{
		Audio:    audio,
		Filename: header.Filename,
		Language: lang,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := recitation.Score(r.FormValue("referenceText"), transcription.Text)
	h.logger.Info("recitation scored",
		zap.Int("score", res.Score),
		zap.String("tier", string(res.Tier)),
		zap.Int("audio_bytes", len(audio)),
	)

	writeJSON(w, http.StatusOK, newScoreResponse(res))
}

type scoreTextRequest struct {
	ReferenceText string `json:"reference_text"`
	Transcript    string `json:"transcript"`
}

// scoreText scores an already transcribed recitation
func (h *Handler) scoreText(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSON[scoreTextRequest](w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScoreResponse(recitation.Score(in.ReferenceText, in.Transcript)))
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestFields(r *http.Request, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
}
