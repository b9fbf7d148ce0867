package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
)

// LessonStatus is a lesson of the path with the user's standing on it
type LessonStatus struct {
	Lesson    *lesson.Lesson
	Number    int // 1-based position on the path
	Completed bool
	Unlocked  bool
}

// LessonStep is the step of a lesson a user is on
type LessonStep struct {
	Lesson *lesson.Lesson
	Index  int
	Total  int
	Step   lesson.Step
}

// LessonOutcome is the result of answering a lesson step
type LessonOutcome struct {
	LessonStep
	Chosen   int
	Correct  bool
	Score    int // correctly answered steps so far
	Finished bool
	XP       int
	Repeat   bool // the lesson had been completed before, no XP this time
}

type lessonSession struct {
	LessonID string `json:"lesson_id"`
	Step     int    `json:"step"`
	Correct  int    `json:"correct"`
}

// Lessons returns the lesson path with what the user completed and unlocked
func (s *BotService) Lessons(ctx context.Context, userID string) ([]LessonStatus, error) {
	completed, err := s.completedLessons(ctx, userID)
	if err != nil {
		return nil, err
	}

	lessons := s.lessons.List()
	out := make([]LessonStatus, len(lessons))
	for i, l := range lessons {
		out[i] = LessonStatus{
			Lesson:    l,
			Number:    i + 1,
			Completed: completed[l.ID],
			Unlocked:  s.lessons.Unlocked(l.ID, completed),
		}
	}
	return out, nil
}

// StartLesson opens lesson id at its first step. Completed lessons can be replayed.
func (s *BotService) StartLesson(ctx context.Context, userID, lessonID string) (*LessonStep, error) {
	l, ok := s.lessons.Lesson(lessonID)
	if !ok {
		return nil, fmt.Errorf("lesson %q: %w", lessonID, domain.ErrNotFound)
	}

	completed, err := s.completedLessons(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.lessons.Unlocked(l.ID, completed) {
		return nil, fmt.Errorf("lesson %q: %w", lessonID, domain.ErrLessonLocked)
	}

	if err := s.saveLessonSession(ctx, userID, lessonSession{LessonID: l.ID}); err != nil {
		return nil, err
	}
	if err := s.fsm.SetState(ctx, userID, domain.StateLesson); err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}

	return s.lessonStep(lessonSession{LessonID: l.ID})
}

// CurrentLessonStep returns the step the user is on
func (s *BotService) CurrentLessonStep(ctx context.Context, userID string) (*LessonStep, error) {
	raw, err := s.fsm.GetData(ctx, userID, domain.SessionKeyLesson)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	sess, err := decodeLessonSession(raw)
	if err != nil {
		return nil, err
	}
	return s.lessonStep(sess)
}

// AnswerLessonStep grades choice on step of the open lesson. The session is
// taken out of the FSM while grading, so a repeated tap on the same step
// fails with ErrSessionExpired instead of answering the next step. The last
// step completes the lesson and awards XP the first time.
func (s *BotService) AnswerLessonStep(ctx context.Context, userID string, step, choice int) (*LessonOutcome, error) {
	raw, err := s.fsm.TakeData(ctx, userID, domain.SessionKeyLesson)
	if err != nil {
		return nil, err
	}
	sess, err := decodeLessonSession(raw)
	if err != nil {
		return nil, err
	}

	// restore puts the untouched session back when the answer is rejected
	restore := func(cause error) error {
		if err := s.fsm.SetData(ctx, userID, domain.SessionKeyLesson, raw); err != nil {
			return fmt.Errorf("restore lesson: %w", err)
		}
		return cause
	}

	if sess.Step != step {
		return nil, restore(fmt.Errorf("step %d, lesson is on %d: %w", step, sess.Step, domain.ErrSessionExpired))
	}

	cur, err := s.lessonStep(sess)
	if err != nil {
		return nil, err
	}
	if choice < 0 || choice >= len(cur.Step.Options) {
		return nil, restore(fmt.Errorf("choice %d: %w", choice, domain.ErrInvalidSelection))
	}

	outcome := &LessonOutcome{
		LessonStep: *cur,
		Chosen:     choice,
		Correct:    choice == cur.Step.Answer,
	}
	if outcome.Correct {
		sess.Correct++
	}
	sess.Step++
	outcome.Score = sess.Correct

	if sess.Step < cur.Total {
		if err := s.saveLessonSession(ctx, userID, sess); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	first, err := s.progress.CompleteLesson(ctx, &domain.LessonCompletion{
		UserID:      userID,
		LessonID:    sess.LessonID,
		Correct:     sess.Correct,
		Total:       cur.Total,
		XP:          lesson.XP,
		CompletedAt: s.now(),
	})
	if err != nil {
		return nil, restore(fmt.Errorf("complete lesson: %w", err))
	}

	outcome.Finished = true
	outcome.Repeat = !first
	if first {
		outcome.XP = lesson.XP
	}

	if err := s.fsm.SetState(ctx, userID, domain.StateStart); err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}

	s.logger.Info("lesson completed",
		zap.String("user_id", userID),
		zap.String("lesson_id", sess.LessonID),
		zap.Int("correct", sess.Correct),
		zap.Int("total", cur.Total),
		zap.Bool("first", first),
	)

	return outcome, nil
}

func (s *BotService) completedLessons(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := s.progress.ListCompletedLessons(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed lessons: %w", err)
	}
	completed := make(map[string]bool, len(ids))
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}

func (s *BotService) lessonStep(sess lessonSession) (*LessonStep, error) {
	l, ok := s.lessons.Lesson(sess.LessonID)
	if !ok {
		return nil, fmt.Errorf("lesson %q: %w", sess.LessonID, domain.ErrSessionExpired)
	}
	step, ok := l.Step(sess.Step)
	if !ok {
		return nil, fmt.Errorf("lesson %q step %d: %w", sess.LessonID, sess.Step, domain.ErrSessionExpired)
	}
	return &LessonStep{Lesson: l, Index: sess.Step, Total: len(l.Steps()), Step: step}, nil
}

func (s *BotService) saveLessonSession(ctx context.Context, userID string, sess lessonSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal lesson: %w", err)
	}
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyLesson, string(data)); err != nil {
		return fmt.Errorf("set lesson: %w", err)
	}
	return nil
}

func decodeLessonSession(raw string) (lessonSession, error) {
	var sess lessonSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return lessonSession{}, fmt.Errorf("unmarshal lesson: %w", err)
	}
	return sess, nil
}

// ToggleBookmark saves the verse the user is on, or removes it when it was
// already saved. It reports whether the verse is bookmarked afterwards.
func (s *BotService) ToggleBookmark(ctx context.Context, userID string) (bool, error) {
	sel, err := s.CurrentVerse(ctx, userID)
	if err != nil {
		return false, err
	}

	added, err := s.progress.AddBookmark(ctx, &domain.Bookmark{
		UserID:    userID,
		AyahID:    sel.Verse.AyahID(),
		SurahName: sel.Surah.Name,
		Text:      sel.Verse.Text,
		CreatedAt: s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("add bookmark: %w", err)
	}
	if added {
		return true, nil
	}

	if err := s.progress.RemoveBookmark(ctx, userID, sel.Verse.AyahID()); err != nil {
		return false, fmt.Errorf("remove bookmark: %w", err)
	}
	return false, nil
}

// ListBookmarks returns the user's saved verses, newest first
func (s *BotService) ListBookmarks(ctx context.Context, userID string, limit int) ([]*domain.Bookmark, error) {
	return s.progress.ListBookmarks(ctx, userID, limit)
}

// OpenBookmark selects a saved verse for reading as if it had been picked
// through the surah and ayah menus
func (s *BotService) OpenBookmark(ctx context.Context, userID, ayahID string) (*Selection, error) {
	surahNumber, ayahNumber := domain.ParseAyahID(ayahID)
	if surahNumber == 0 || ayahNumber == 0 {
		return nil, fmt.Errorf("ayah id %q: %w", ayahID, domain.ErrInvalidSelection)
	}

	if err := s.StartSelection(ctx, userID, domain.ModeRead); err != nil {
		return nil, err
	}
	if _, err := s.HandleSurahSelection(ctx, userID, surahNumber); err != nil {
		return nil, err
	}
	return s.HandleAyahInput(ctx, userID, strconv.Itoa(ayahNumber))
}
