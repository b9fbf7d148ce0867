package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
	"github.com/escalopa/tajweed-bot/internal/recitation"
	"github.com/escalopa/tajweed-bot/internal/tajweed"
)

// ErrExplainerDisabled is returned when no explainer is configured
var ErrExplainerDisabled = errors.New("explainer disabled")

// recitationLanguage is the transcription language of every recitation
const recitationLanguage = "ar"

// QuestionGenerator builds practice questions
type QuestionGenerator interface {
	Generate(ctx context.Context) (*tajweed.Question, error)
}

// Selection is the verse picked through the surah and ayah menus
type Selection struct {
	Mode  domain.Mode
	Surah domain.Surah
	Verse domain.Verse
}

// PracticeOutcome is the result of answering a practice question
type PracticeOutcome struct {
	Question    tajweed.Question
	Chosen      string
	CorrectName string
	Correct     bool
	XP          int
}

// BotService handles the business logic for the bot
type BotService struct {
	catalog     *tajweed.Catalog
	lessons     *lesson.Catalog
	generator   QuestionGenerator
	corpus      domain.CorpusPort
	fsm         domain.FSMPort
	transcriber domain.TranscriberPort
	progress    domain.ProgressPort
	explainer   domain.ExplainerPort // nil when disabled
	defaultLang domain.Language
	logger      *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewBotService(
	catalog *tajweed.Catalog,
	lessons *lesson.Catalog,
	generator QuestionGenerator,
	corpus domain.CorpusPort,
	fsm domain.FSMPort,
	transcriber domain.TranscriberPort,
	progress domain.ProgressPort,
	explainer domain.ExplainerPort,
	defaultLang domain.Language,
	logger *zap.Logger,
) *BotService {
	return &BotService{
		catalog:     catalog,
		lessons:     lessons,
		generator:   generator,
		corpus:      corpus,
		fsm:         fsm,
		transcriber: transcriber,
		progress:    progress,
		explainer:   explainer,
		defaultLang: defaultLang,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// HandleStart handles the /start command
func (s *BotService) HandleStart(ctx context.Context, userID string, lang domain.Language) error {
	if err := s.fsm.SetState(ctx, userID, domain.StateStart); err != nil {
		return fmt.Errorf("set state: %w", err)
	}

	// Keep a language chosen earlier
	if _, err := s.fsm.GetData(ctx, userID, domain.SessionKeyLanguage); err == nil {
		return nil
	}

	return s.SetLanguage(ctx, userID, lang)
}

// GetCurrentState returns the current state for a user
func (s *BotService) GetCurrentState(ctx context.Context, userID string) (domain.State, error) {
	return s.fsm.GetState(ctx, userID)
}

// GetUserLanguage retrieves the user's preferred language
func (s *BotService) GetUserLanguage(ctx context.Context, userID string) domain.Language {
	langStr, err := s.fsm.GetData(ctx, userID, domain.SessionKeyLanguage)
	if err != nil || langStr == "" {
		return s.defaultLang
	}
	return domain.Language(langStr)
}

// SetLanguage stores the user's preferred language
func (s *BotService) SetLanguage(ctx context.Context, userID string, lang domain.Language) error {
	if !supported(lang) {
		return fmt.Errorf("language %q: %w", lang, domain.ErrInvalidSelection)
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyLanguage, string(lang)); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// Rules returns the tajweed guide
func (s *BotService) Rules() []tajweed.Rule {
	return s.catalog.List()
}

// Rule looks a tajweed rule up by ID
func (s *BotService) Rule(id string) (tajweed.Rule, bool) {
	return s.catalog.Rule(id)
}

// TajweedEnabled reports whether verses are shown with rule highlighting
func (s *BotService) TajweedEnabled(ctx context.Context, userID string) bool {
	v, err := s.fsm.GetData(ctx, userID, domain.SessionKeyTajweed)
	return err != nil || v != "off"
}

// ToggleTajweed flips rule highlighting and returns the new setting
func (s *BotService) ToggleTajweed(ctx context.Context, userID string) (bool, error) {
	enabled := !s.TajweedEnabled(ctx, userID)
	value := "on"
	if !enabled {
		value = "off"
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyTajweed, value); err != nil {
		return false, fmt.Errorf("set tajweed: %w", err)
	}
	return enabled, nil
}

// Annotate splits a verse into spans following the user's highlight setting
func (s *BotService) Annotate(ctx context.Context, userID, text string) []tajweed.Span {
	return s.catalog.Annotate(text, s.TajweedEnabled(ctx, userID))
}

// StartSelection starts the surah menu for reading or reciting
func (s *BotService) StartSelection(ctx context.Context, userID string, mode domain.Mode) error {
	if mode != domain.ModeRead && mode != domain.ModeRecite {
		return fmt.Errorf("mode %q: %w", mode, domain.ErrInvalidSelection)
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyMode, string(mode)); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	if err := s.ClearAyahInput(ctx, userID); err != nil {
		return fmt.Errorf("clear ayah input: %w", err)
	}
	if err := s.fsm.SetState(ctx, userID, domain.StateSelectSurah); err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// GetMode returns what the current selection is for
func (s *BotService) GetMode(ctx context.Context, userID string) domain.Mode {
	mode, err := s.fsm.GetData(ctx, userID, domain.SessionKeyMode)
	if err != nil || mode == "" {
		return domain.ModeRead
	}
	return domain.Mode(mode)
}

// ListSurahs returns all surahs
func (s *BotService) ListSurahs(ctx context.Context) ([]domain.Surah, error) {
	surahs, err := s.corpus.ListSurahs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list surahs: %w", err)
	}
	return surahs, nil
}

// HandleSurahSelection handles when a user selects a Surah
func (s *BotService) HandleSurahSelection(ctx context.Context, userID string, surahNumber int) (*domain.Surah, error) {
	surahs, err := s.ListSurahs(ctx)
	if err != nil {
		return nil, err
	}

	// Validate surah number
	if surahNumber < 1 || surahNumber > len(surahs) {
		return nil, fmt.Errorf("surah %d: %w", surahNumber, domain.ErrInvalidSelection)
	}
	surah := surahs[surahNumber-1]

	if err := s.fsm.SetData(ctx, userID, domain.SessionKeySurah, strconv.Itoa(surahNumber)); err != nil {
		return nil, fmt.Errorf("set surah: %w", err)
	}
	if err := s.ClearAyahInput(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear ayah input: %w", err)
	}
	if err := s.fsm.SetState(ctx, userID, domain.StateEnterAyah); err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}

	return &surah, nil
}

// GetSelectedSurah returns the currently selected surah number for a user
func (s *BotService) GetSelectedSurah(ctx context.Context, userID string) (int, error) {
	surahStr, err := s.fsm.GetData(ctx, userID, domain.SessionKeySurah)
	if err != nil {
		return 0, fmt.Errorf("get surah: %w", err)
	}

	return strconv.Atoi(surahStr)
}

// HandleAyahInput handles when a user enters an Ayah number.
// In recite mode the user is then asked for a voice message.
func (s *BotService) HandleAyahInput(ctx context.Context, userID, input string) (*Selection, error) {
	ayahNumber, err := strconv.Atoi(input)
	if err != nil {
		return nil, fmt.Errorf("ayah %q: %w", input, domain.ErrInvalidSelection)
	}

	surahNumber, err := s.GetSelectedSurah(ctx, userID)
	if err != nil {
		return nil, err
	}

	set, err := s.corpus.FetchVerseSet(ctx, surahNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch surah %d: %w", surahNumber, err)
	}

	if ayahNumber < 1 || ayahNumber > set.AyahCount {
		return nil, fmt.Errorf("ayah %d (surah %d has %d ayahs): %w",
			ayahNumber, surahNumber, set.AyahCount, domain.ErrInvalidSelection)
	}

	verse, ok := set.Verse(ayahNumber)
	if !ok {
		return nil, fmt.Errorf("ayah %d: %w", ayahNumber, domain.ErrInvalidSelection)
	}

	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyAyah, strconv.Itoa(ayahNumber)); err != nil {
		return nil, fmt.Errorf("set ayah: %w", err)
	}
	if err := s.ClearAyahInput(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear ayah input: %w", err)
	}

	mode := s.GetMode(ctx, userID)
	next := domain.StateStart
	if mode == domain.ModeRecite {
		next = domain.StateWaitRecording
	}
	if err := s.fsm.SetState(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}

	return &Selection{Mode: mode, Surah: set.Surah, Verse: verse}, nil
}

// CurrentVerse returns the verse of the last completed selection
func (s *BotService) CurrentVerse(ctx context.Context, userID string) (*Selection, error) {
	surahNumber, err := s.GetSelectedSurah(ctx, userID)
	if err != nil {
		return nil, err
	}

	ayahStr, err := s.fsm.GetData(ctx, userID, domain.SessionKeyAyah)
	if err != nil {
		return nil, fmt.Errorf("get ayah: %w", err)
	}
	ayahNumber, err := strconv.Atoi(ayahStr)
	if err != nil {
		return nil, fmt.Errorf("parse ayah: %w", err)
	}

	set, err := s.corpus.FetchVerseSet(ctx, surahNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch surah %d: %w", surahNumber, err)
	}

	verse, ok := set.Verse(ayahNumber)
	if !ok {
		return nil, fmt.Errorf("ayah %d: %w", ayahNumber, domain.ErrInvalidSelection)
	}

	return &Selection{Mode: s.GetMode(ctx, userID), Surah: set.Surah, Verse: verse}, nil
}

// GetAyahInput gets the accumulated ayah input for a user
func (s *BotService) GetAyahInput(ctx context.Context, userID string) string {
	input, err := s.fsm.GetData(ctx, userID, domain.SessionKeyAyahInput)
	if err != nil {
		return ""
	}
	return input
}

// SetAyahInput sets the accumulated ayah input for a user
func (s *BotService) SetAyahInput(ctx context.Context, userID, input string) error {
	return s.fsm.SetData(ctx, userID, domain.SessionKeyAyahInput, input)
}

// ClearAyahInput clears the accumulated ayah input for a user
func (s *BotService) ClearAyahInput(ctx context.Context, userID string) error {
	return s.fsm.DeleteData(ctx, userID, domain.SessionKeyAyahInput)
}

// HandleRecording transcribes a voice message and scores it against the
// selected verse. The user stays on the verse so they can try again.
func (s *BotService) HandleRecording(ctx context.Context, userID string, audio []byte, filename string) (*domain.RecitationAttempt, error) {
	sel, err := s.CurrentVerse(ctx, userID)
	if err != nil {
		return nil, err
	}

	transcript, err := s.transcriber.Transcribe(ctx, domain.TranscriptionRequest{
		Audio:    audio,
		Filename: filename,
		Language: recitationLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	attempt := &domain.RecitationAttempt{
		ID:        s.newID(),
		UserID:    userID,
		AyahID:    sel.Verse.AyahID(),
		Reference: sel.Verse.Text,
		Result:    recitation.Score(sel.Verse.Text, transcript.Text),
		CreatedAt: s.now(),
	}

	if err := s.progress.SaveRecitationAttempt(ctx, attempt); err != nil {
		s.logger.Warn("failed to save recitation attempt",
			zap.String("user_id", userID),
			zap.String("ayah_id", attempt.AyahID),
			zap.Error(err),
		)
	}

	s.logger.Info("recitation scored",
		zap.String("user_id", userID),
		zap.String("ayah_id", attempt.AyahID),
		zap.Int("score", attempt.Result.Score),
		zap.Float64("duration", transcript.Duration),
	)

	return attempt, nil
}

// GetRecitation retrieves a specific recitation attempt by ID
func (s *BotService) GetRecitation(ctx context.Context, userID, attemptID string) (*domain.RecitationAttempt, error) {
	return s.progress.GetRecitationAttempt(ctx, userID, attemptID)
}

// ListRecitations retrieves the latest recitation attempts of a user
func (s *BotService) ListRecitations(ctx context.Context, userID string, limit int) ([]*domain.RecitationAttempt, error) {
	return s.progress.ListRecitationAttempts(ctx, userID, limit)
}

// GetProgress returns the user's XP, scores and daily streak
func (s *BotService) GetProgress(ctx context.Context, userID string) (*domain.ProgressSummary, error) {
	summary, err := s.progress.GetSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary.Streak = domain.Streak(summary.ActiveDays, s.now())
	return summary, nil
}

// NewQuestion generates a practice question and keeps it open in the session
func (s *BotService) NewQuestion(ctx context.Context, userID string) (*tajweed.Question, error) {
	q, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}

	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyQuestion, string(data)); err != nil {
		return nil, fmt.Errorf("set question: %w", err)
	}
	if err := s.fsm.SetState(ctx, userID, domain.StatePractice); err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}

	return q, nil
}

// AnswerQuestion checks the choice at index against the open question.
// The question is taken out of the session atomically, so of two racing
// answers only one is graded and the other fails with ErrSessionExpired.
func (s *BotService) AnswerQuestion(ctx context.Context, userID string, index int) (*PracticeOutcome, error) {
	open, err := s.loadQuestion(ctx, userID, domain.SessionKeyQuestion)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(open.Choices) {
		return nil, fmt.Errorf("choice %d: %w", index, domain.ErrInvalidSelection)
	}

	raw, err := s.fsm.TakeData(ctx, userID, domain.SessionKeyQuestion)
	if err != nil {
		return nil, err
	}
	var q tajweed.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("unmarshal question: %w", err)
	}
	if index >= len(q.Choices) {
		return nil, fmt.Errorf("choice %d: %w", index, domain.ErrInvalidSelection)
	}

	chosen := q.Choices[index]
	correct := s.catalog.CheckAnswer(q, chosen)
	rule, _ := s.catalog.Rule(q.TargetRuleID)

	outcome := &PracticeOutcome{
		Question:    q,
		Chosen:      chosen,
		CorrectName: rule.Name,
		Correct:     correct,
	}
	if correct {
		outcome.XP = domain.PracticeXP
	}

	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyAnswered, string(data)); err != nil {
		return nil, fmt.Errorf("set answered: %w", err)
	}

	err = s.progress.SavePracticeAttempt(ctx, &domain.PracticeAttempt{
		UserID:    userID,
		AyahID:    q.AyahID(),
		RuleID:    q.TargetRuleID,
		Chosen:    chosen,
		Correct:   correct,
		XP:        outcome.XP,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("failed to save practice attempt",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return outcome, nil
}

// ExplainAnswer asks the explainer why the rule of the last answered question applies
func (s *BotService) ExplainAnswer(ctx context.Context, userID string, lang domain.Language) (string, error) {
	if s.explainer == nil {
		return "", ErrExplainerDisabled
	}

	q, err := s.loadQuestion(ctx, userID, domain.SessionKeyAnswered)
	if err != nil {
		return "", err
	}

	rule, _ := s.catalog.Rule(q.TargetRuleID)
	question := fmt.Sprintf("Why does the %s rule apply to %q in this verse?", rule.Name, q.Highlighted)

	answer, err := s.explainer.Explain(ctx, question, q.VerseText, lang)
	if err != nil {
		return "", fmt.Errorf("explain answer: %w", err)
	}
	return answer, nil
}

// ExplainVerse asks the explainer about the meaning of the selected verse
func (s *BotService) ExplainVerse(ctx context.Context, userID string, lang domain.Language) (string, error) {
	if s.explainer == nil {
		return "", ErrExplainerDisabled
	}

	sel, err := s.CurrentVerse(ctx, userID)
	if err != nil {
		return "", err
	}

	question := fmt.Sprintf("Explain verse %d of surah %s.", sel.Verse.Number, sel.Surah.Name)
	answer, err := s.explainer.Explain(ctx, question, sel.Verse.Text, lang)
	if err != nil {
		return "", fmt.Errorf("explain verse: %w", err)
	}
	return answer, nil
}

// ExplainerEnabled reports whether explanations can be requested
func (s *BotService) ExplainerEnabled() bool {
	return s.explainer != nil
}

func (s *BotService) loadQuestion(ctx context.Context, userID, key string) (*tajweed.Question, error) {
	data, err := s.fsm.GetData(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	var q tajweed.Question
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return nil, fmt.Errorf("unmarshal question: %w", err)
	}
	return &q, nil
}

func supported(lang domain.Language) bool {
	return slices.Contains(domain.Languages, lang)
}
