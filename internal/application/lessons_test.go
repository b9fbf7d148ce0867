package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/lesson"
)

func TestLessons_UnlockInOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	path, err := f.svc.Lessons(ctx, user)
	require.NoError(t, err)
	require.Len(t, path, lesson.Default().Len())
	assert.Equal(t, 1, path[0].Number)
	assert.True(t, path[0].Unlocked)
	assert.False(t, path[0].Completed)
	assert.False(t, path[1].Unlocked)

	_, err = f.svc.StartLesson(ctx, user, "hijaiyah-2")
	require.ErrorIs(t, err, domain.ErrLessonLocked)

	_, err = f.svc.StartLesson(ctx, user, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLesson_PlayThrough(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	step, err := f.svc.StartLesson(ctx, user, "hijaiyah-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateLesson, f.state(t))
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, 2, step.Total)

	outcome, err := f.svc.AnswerLessonStep(ctx, user, 0, step.Step.Answer)
	require.NoError(t, err)
	assert.True(t, outcome.Correct)
	assert.False(t, outcome.Finished)
	assert.Equal(t, 1, outcome.Score)

	step, err = f.svc.CurrentLessonStep(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, step.Index)

	wrong := (step.Step.Answer + 1) % len(step.Step.Options)
	outcome, err = f.svc.AnswerLessonStep(ctx, user, 1, wrong)
	require.NoError(t, err)
	assert.False(t, outcome.Correct)
	assert.True(t, outcome.Finished)
	assert.False(t, outcome.Repeat)
	assert.Equal(t, lesson.XP, outcome.XP)
	assert.Equal(t, 1, outcome.Score)
	assert.Equal(t, domain.StateStart, f.state(t))

	require.Len(t, f.progress.lessons, 1)
	assert.Equal(t, "hijaiyah-1", f.progress.lessons[0].LessonID)
	assert.Equal(t, 1, f.progress.lessons[0].Correct)
	assert.Equal(t, 2, f.progress.lessons[0].Total)

	path, err := f.svc.Lessons(ctx, user)
	require.NoError(t, err)
	assert.True(t, path[0].Completed)
	assert.True(t, path[1].Unlocked)
	assert.False(t, path[2].Unlocked)

	_, err = f.svc.CurrentLessonStep(ctx, user)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLesson_ReplayAwardsNoXP(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	play := func() *LessonOutcome {
		t.Helper()
		step, err := f.svc.StartLesson(ctx, user, "hijaiyah-1")
		require.NoError(t, err)
		var outcome *LessonOutcome
		for i := 0; i < step.Total; i++ {
			cur, err := f.svc.CurrentLessonStep(ctx, user)
			require.NoError(t, err)
			outcome, err = f.svc.AnswerLessonStep(ctx, user, i, cur.Step.Answer)
			require.NoError(t, err)
		}
		return outcome
	}

	first := play()
	assert.Equal(t, lesson.XP, first.XP)
	assert.Equal(t, 2, first.Score)

	again := play()
	assert.True(t, again.Finished)
	assert.True(t, again.Repeat)
	assert.Zero(t, again.XP)
	assert.Len(t, f.progress.lessons, 1)
}

func TestLesson_RejectedAnswersKeepTheSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.StartLesson(ctx, user, "kosakata-1")
	require.ErrorIs(t, err, domain.ErrLessonLocked)

	_, err = f.svc.StartLesson(ctx, user, "hijaiyah-1")
	require.NoError(t, err)

	_, err = f.svc.AnswerLessonStep(ctx, user, 1, 0)
	require.ErrorIs(t, err, domain.ErrSessionExpired, "a button of another step")

	_, err = f.svc.AnswerLessonStep(ctx, user, 0, 9)
	require.ErrorIs(t, err, domain.ErrInvalidSelection)

	step, err := f.svc.CurrentLessonStep(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, step.Index)

	_, err = f.svc.AnswerLessonStep(ctx, user, 0, 0)
	require.NoError(t, err)
	_, err = f.svc.AnswerLessonStep(ctx, user, 0, 0)
	require.ErrorIs(t, err, domain.ErrSessionExpired, "a second tap on the answered step")

	step, err = f.svc.CurrentLessonStep(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, step.Index)
}

func TestLesson_CompletionFailureCanBeRetried(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.StartLesson(ctx, user, "hijaiyah-1")
	require.NoError(t, err)
	_, err = f.svc.AnswerLessonStep(ctx, user, 0, 0)
	require.NoError(t, err)

	f.progress.err = errors.New("db down")
	_, err = f.svc.AnswerLessonStep(ctx, user, 1, 1)
	require.Error(t, err)

	step, err := f.svc.CurrentLessonStep(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, step.Index, "the last step stays open")

	f.progress.err = nil
	outcome, err := f.svc.AnswerLessonStep(ctx, user, 1, 1)
	require.NoError(t, err)
	assert.True(t, outcome.Finished)
	assert.Equal(t, 2, outcome.Score)
}

func TestBookmarks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ToggleBookmark(ctx, user)
	require.ErrorIs(t, err, domain.ErrSessionExpired, "no verse open yet")

	require.NoError(t, f.svc.StartSelection(ctx, user, domain.ModeRead))
	_, err = f.svc.HandleSurahSelection(ctx, user, 112)
	require.NoError(t, err)
	_, err = f.svc.HandleAyahInput(ctx, user, "1")
	require.NoError(t, err)

	saved, err := f.svc.ToggleBookmark(ctx, user)
	require.NoError(t, err)
	assert.True(t, saved)

	list, err := f.svc.ListBookmarks(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "112001", list[0].AyahID)
	assert.Equal(t, "Al-Ikhlas", list[0].SurahName)
	assert.Equal(t, "قُلْ هُوَ اللّٰهُ أَحَدٌ", list[0].Text)

	saved, err = f.svc.ToggleBookmark(ctx, user)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Empty(t, f.progress.bookmarks)
}

func TestOpenBookmark(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sel, err := f.svc.OpenBookmark(ctx, user, "112003")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeRead, sel.Mode)
	assert.Equal(t, 3, sel.Verse.Number)
	assert.Equal(t, "لَمْ يَلِدْ وَلَمْ يُولَدْ", sel.Verse.Text)

	cur, err := f.svc.CurrentVerse(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "112003", cur.Verse.AyahID())

	_, err = f.svc.OpenBookmark(ctx, user, "bad")
	require.ErrorIs(t, err, domain.ErrInvalidSelection)
	_, err = f.svc.OpenBookmark(ctx, user, "112009")
	require.ErrorIs(t, err, domain.ErrInvalidSelection)
}

func TestGetProgress_Streak(t *testing.T) {
	f := newFixture(t, nil)
	now := f.svc.now()
	f.progress.activeDays = []time.Time{now, now.AddDate(0, 0, -1), now.AddDate(0, 0, -3)}

	summary, err := f.svc.GetProgress(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Streak)
}
