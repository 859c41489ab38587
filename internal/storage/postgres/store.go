// Package postgres implements submission persistence on PostgreSQL for
// deployments where several grader instances share one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlahtinen/gradery/internal/storage/submission"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
    id           UUID PRIMARY KEY,
    course_key   TEXT NOT NULL,
    exercise_key TEXT NOT NULL,
    user_id      TEXT NOT NULL,
    lang         TEXT NOT NULL DEFAULT '',
    ordinal      INTEGER NOT NULL DEFAULT 1,
    points       INTEGER NOT NULL DEFAULT 0,
    max_points   INTEGER NOT NULL DEFAULT 0,
    error_fields JSONB NOT NULL DEFAULT '[]',
    error_groups JSONB NOT NULL DEFAULT '[]',
    hints        JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_submissions_lookup
    ON submissions (course_key, exercise_key, user_id, created_at);
`

// Store is a PostgreSQL-backed submission store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool and ensures the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// SaveSubmission inserts one graded submission.
func (s *Store) SaveSubmission(ctx context.Context, rec *submission.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (id, course_key, exercise_key, user_id, lang, ordinal,
			points, max_points, error_fields, error_groups, hints, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.CourseKey, rec.ExerciseKey, rec.UserID, rec.Lang, rec.Ordinal,
		rec.Points, rec.MaxPoints, rec.ErrorFields, rec.ErrorGroups, rec.Hints,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetSubmission loads one submission by id.
func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*submission.Record, error) {
	var rec submission.Record
	err := s.pool.QueryRow(ctx, `
		SELECT id, course_key, exercise_key, user_id, lang, ordinal,
			points, max_points, error_fields, error_groups, hints, created_at
		FROM submissions WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CourseKey, &rec.ExerciseKey, &rec.UserID, &rec.Lang, &rec.Ordinal,
		&rec.Points, &rec.MaxPoints, &rec.ErrorFields, &rec.ErrorGroups, &rec.Hints, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, submission.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &rec, nil
}

// ListSubmissions returns the newest submissions matching the filter, newest
// first. Empty filter values match everything.
func (s *Store) ListSubmissions(ctx context.Context, courseKey, exerciseKey, userID string, limit int) ([]*submission.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, course_key, exercise_key, user_id, lang, ordinal,
			points, max_points, error_fields, error_groups, hints, created_at
		FROM submissions
		WHERE ($1 = '' OR course_key = $1)
		  AND ($2 = '' OR exercise_key = $2)
		  AND ($3 = '' OR user_id = $3)
		ORDER BY created_at DESC
		LIMIT $4`,
		courseKey, exerciseKey, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*submission.Record
	for rows.Next() {
		var rec submission.Record
		err := rows.Scan(&rec.ID, &rec.CourseKey, &rec.ExerciseKey, &rec.UserID, &rec.Lang, &rec.Ordinal,
			&rec.Points, &rec.MaxPoints, &rec.ErrorFields, &rec.ErrorGroups, &rec.Hints, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
