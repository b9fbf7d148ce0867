package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/recitation"
)

// livePool connects to DATABASE_TEST_URL or skips the test
func livePool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_TEST_URL")
	if dsn == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, dsn, PoolConfig{MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestSchema_Embedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS practice_attempts")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS recitation_attempts")
	assert.Contains(t, schema, "CHECK (score BETWEEN 0 AND 100)")
	assert.Contains(t, schema, "PRIMARY KEY (user_id, lesson_id)")
	assert.Contains(t, schema, "PRIMARY KEY (user_id, ayah_id)")
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz", PoolConfig{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse config:"), err.Error())
}

func TestProgressRepository_Live(t *testing.T) {
	pool := livePool(t)
	repo := NewProgressRepository(pool)
	ctx := context.Background()
	user := "test-" + uuid.NewString()

	summary, err := repo.GetSummary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressSummary{}, *summary)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.SavePracticeAttempt(ctx, &domain.PracticeAttempt{
		UserID: user, AyahID: "112001", RuleID: "ikhfa", Chosen: "ikhfa",
		Correct: true, XP: domain.PracticeXP, CreatedAt: now,
	}))
	require.NoError(t, repo.SavePracticeAttempt(ctx, &domain.PracticeAttempt{
		UserID: user, AyahID: "112001", RuleID: "ikhfa", Chosen: "idgham",
		Correct: false, CreatedAt: now,
	}))

	older := &domain.RecitationAttempt{
		ID: uuid.NewString(), UserID: user, AyahID: "112001", Reference: "قُلْ هُوَ اللّٰهُ أَحَدٌ",
		Result:    recitation.Score("قُلْ هُوَ اللّٰهُ أَحَدٌ", "قل هو الله احد"),
		CreatedAt: now.Add(-time.Minute),
	}
	newer := &domain.RecitationAttempt{
		ID: uuid.NewString(), UserID: user, AyahID: "112002", Reference: "اللّٰهُ الصَّمَدُ",
		Result:    recitation.Score("اللّٰهُ الصَّمَدُ", "الله"),
		CreatedAt: now,
	}
	require.NoError(t, repo.SaveRecitationAttempt(ctx, older))
	require.NoError(t, repo.SaveRecitationAttempt(ctx, newer))

	list, err := repo.ListRecitationAttempts(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	got, err := repo.GetRecitationAttempt(ctx, user, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.Result, got.Result)
	assert.Equal(t, "112001", got.AyahID)

	_, err = repo.GetRecitationAttempt(ctx, "someone-else", older.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	summary, err = repo.GetSummary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.PracticeXP, summary.XP)
	assert.Equal(t, 2, summary.Answered)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 2, summary.Recitations)
	assert.Equal(t, 100, summary.BestScore)
	require.NotNil(t, summary.LastActivityAt)
	assert.WithinDuration(t, now, *summary.LastActivityAt, time.Second)
	require.NotEmpty(t, summary.ActiveDays)
	assert.Equal(t, 1, domain.Streak(summary.ActiveDays, now))
}

func TestProgressRepository_LessonsAndBookmarks_Live(t *testing.T) {
	pool := livePool(t)
	repo := NewProgressRepository(pool)
	ctx := context.Background()
	user := "test-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)

	completion := &domain.LessonCompletion{
		UserID: user, LessonID: "hijaiyah-1", Correct: 1, Total: 2, XP: 50, CompletedAt: now,
	}
	first, err := repo.CompleteLesson(ctx, completion)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = repo.CompleteLesson(ctx, completion)
	require.NoError(t, err)
	assert.False(t, first, "a lesson is only completed once")

	ids, err := repo.ListCompletedLessons(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"hijaiyah-1"}, ids)

	bm := &domain.Bookmark{UserID: user, AyahID: "112001", SurahName: "Al-Ikhlas", Text: "قُلْ هُوَ اللّٰهُ أَحَدٌ", CreatedAt: now}
	added, err := repo.AddBookmark(ctx, bm)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddBookmark(ctx, bm)
	require.NoError(t, err)
	assert.False(t, added)

	list, err := repo.ListBookmarks(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Al-Ikhlas", list[0].SurahName)

	summary, err := repo.GetSummary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.XP)
	assert.Equal(t, 1, summary.CompletedLessons)
	assert.Equal(t, 1, summary.Bookmarks)

	require.NoError(t, repo.RemoveBookmark(ctx, user, "112001"))
	list, err = repo.ListBookmarks(ctx, user, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
