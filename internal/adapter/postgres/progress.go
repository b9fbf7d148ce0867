package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/escalopa/tajweed-bot/internal/domain"
	"github.com/escalopa/tajweed-bot/internal/recitation"
)

// ProgressRepository stores practice answers and scored recitations
type ProgressRepository struct {
	db DBTX
}

func NewProgressRepository(db DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// SavePracticeAttempt stores an answered practice question
func (r *ProgressRepository) SavePracticeAttempt(ctx context.Context, a *domain.PracticeAttempt) error {
	query := `
		INSERT INTO practice_attempts (user_id, ayah_id, rule_id, chosen, correct, xp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query, a.UserID, a.AyahID, a.RuleID, a.Chosen, a.Correct, a.XP, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert practice attempt: %w", err)
	}

	return nil
}

// SaveRecitationAttempt stores a scored recitation
func (r *ProgressRepository) SaveRecitationAttempt(ctx context.Context, a *domain.RecitationAttempt) error {
	query := `
		INSERT INTO recitation_attempts (
			id, user_id, ayah_id, reference, transcript, normalized_reference,
			normalized_transcript, edit_distance, score, tier, created_at
		) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		a.ID,
		a.UserID,
		a.AyahID,
		a.Reference,
		a.Result.Transcript,
		a.Result.NormalizedReference,
		a.Result.NormalizedTranscript,
		a.Result.EditDistance,
		a.Result.Score,
		string(a.Result.Tier),
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recitation attempt: %w", err)
	}

	return nil
}

const recitationColumns = `
	id::text, user_id, ayah_id, reference, transcript, normalized_reference,
	normalized_transcript, edit_distance, score, tier, created_at
`

// GetRecitationAttempt retrieves one of the user's recitation attempts
func (r *ProgressRepository) GetRecitationAttempt(ctx context.Context, userID, attemptID string) (*domain.RecitationAttempt, error) {
	query := `SELECT ` + recitationColumns + `
		FROM recitation_attempts
		WHERE user_id = $1 AND id::text = $2
	`

	a, err := scanRecitation(r.db.QueryRow(ctx, query, userID, attemptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recitation attempt %s: %w", attemptID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get recitation attempt: %w", err)
	}

	return a, nil
}

// ListRecitationAttempts lists the latest recitation attempts of a user, newest first
func (r *ProgressRepository) ListRecitationAttempts(ctx context.Context, userID string, limit int) ([]*domain.RecitationAttempt, error) {
	query := `SELECT ` + recitationColumns + `
		FROM recitation_attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recitation attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.RecitationAttempt
	for rows.Next() {
		a, err := scanRecitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recitation attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// GetSummary aggregates the progress of a user
func (r *ProgressRepository) GetSummary(ctx context.Context, userID string) (*domain.ProgressSummary, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(xp) FROM practice_attempts WHERE user_id = $1), 0)
				+ COALESCE((SELECT SUM(xp) FROM lesson_completions WHERE user_id = $1), 0),
			(SELECT COUNT(*) FROM practice_attempts WHERE user_id = $1),
			(SELECT COUNT(*) FROM practice_attempts WHERE user_id = $1 AND correct),
			(SELECT COUNT(*) FROM recitation_attempts WHERE user_id = $1),
			COALESCE((SELECT AVG(score) FROM recitation_attempts WHERE user_id = $1), 0)::float8,
			COALESCE((SELECT MAX(score) FROM recitation_attempts WHERE user_id = $1), 0),
			(SELECT COUNT(*) FROM lesson_completions WHERE user_id = $1),
			(SELECT COUNT(*) FROM bookmarks WHERE user_id = $1),
			GREATEST(
				(SELECT MAX(created_at) FROM practice_attempts WHERE user_id = $1),
				(SELECT MAX(created_at) FROM recitation_attempts WHERE user_id = $1),
				(SELECT MAX(completed_at) FROM lesson_completions WHERE user_id = $1)
			)
	`

	var s domain.ProgressSummary
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.XP,
		&s.Answered,
		&s.Correct,
		&s.Recitations,
		&s.AverageScore,
		&s.BestScore,
		&s.CompletedLessons,
		&s.Bookmarks,
		&s.LastActivityAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	s.ActiveDays, err = r.activeDays(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// activeDays lists the UTC days of the last year with any activity, newest first
func (r *ProgressRepository) activeDays(ctx context.Context, userID string) ([]time.Time, error) {
	query := `
		SELECT DISTINCT (ts AT TIME ZONE 'UTC')::date AS day
		FROM (
			SELECT created_at AS ts FROM practice_attempts WHERE user_id = $1
			UNION ALL
			SELECT created_at FROM recitation_attempts WHERE user_id = $1
			UNION ALL
			SELECT completed_at FROM lesson_completions WHERE user_id = $1
		) activity
		WHERE ts > now() - INTERVAL '366 days'
		ORDER BY day DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan active day: %w", err)
		}
		days = append(days, d)
	}

	return days, rows.Err()
}

// CompleteLesson records a finished lesson. Only the first completion is
// kept, so its XP is counted once.
func (r *ProgressRepository) CompleteLesson(ctx context.Context, c *domain.LessonCompletion) (bool, error) {
	query := `
		INSERT INTO lesson_completions (user_id, lesson_id, correct, total, xp, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, c.UserID, c.LessonID, c.Correct, c.Total, c.XP, c.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("insert lesson completion: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListCompletedLessons returns the IDs of the lessons a user completed, oldest first
func (r *ProgressRepository) ListCompletedLessons(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT lesson_id
		FROM lesson_completions
		WHERE user_id = $1
		ORDER BY completed_at
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list completed lessons: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan completed lessons: %w", err)
	}

	return ids, nil
}

// AddBookmark saves an ayah, added is false when the user already saved it
func (r *ProgressRepository) AddBookmark(ctx context.Context, b *domain.Bookmark) (bool, error) {
	query := `
		INSERT INTO bookmarks (user_id, ayah_id, surah_name, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, ayah_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, b.UserID, b.AyahID, b.SurahName, b.Text, b.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert bookmark: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// RemoveBookmark deletes a saved ayah
func (r *ProgressRepository) RemoveBookmark(ctx context.Context, userID, ayahID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM bookmarks WHERE user_id = $1 AND ayah_id = $2`, userID, ayahID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// ListBookmarks lists the saved ayahs of a user, newest first
func (r *ProgressRepository) ListBookmarks(ctx context.Context, userID string, limit int) ([]*domain.Bookmark, error) {
	query := `
		SELECT user_id, ayah_id, surah_name, text, created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*domain.Bookmark
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.UserID, &b.AyahID, &b.SurahName, &b.Text, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, &b)
	}

	return bookmarks, rows.Err()
}

func scanRecitation(row pgx.Row) (*domain.RecitationAttempt, error) {
	var (
		a    domain.RecitationAttempt
		tier string
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.AyahID,
		&a.Reference,
		&a.Result.Transcript,
		&a.Result.NormalizedReference,
		&a.Result.NormalizedTranscript,
		&a.Result.EditDistance,
		&a.Result.Score,
		&tier,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Result.Tier = recitation.Tier(tier)
	return &a, nil
}
