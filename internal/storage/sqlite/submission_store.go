package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mlahtinen/gradery/internal/storage/submission"
)

// SubmissionStore persists graded submissions in SQLite.
type SubmissionStore struct {
	db *DB
}

// NewSubmissionStore creates a SQLite-backed submission store.
func NewSubmissionStore(db *DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// SaveSubmission inserts one graded submission.
func (s *SubmissionStore) SaveSubmission(ctx context.Context, rec *submission.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	errorFields, err := json.Marshal(rec.ErrorFields)
	if err != nil {
		return fmt.Errorf("marshal error_fields: %w", err)
	}
	errorGroups, err := json.Marshal(rec.ErrorGroups)
	if err != nil {
		return fmt.Errorf("marshal error_groups: %w", err)
	}
	hints, err := json.Marshal(rec.Hints)
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, course_key, exercise_key, user_id, lang, ordinal,
			points, max_points, error_fields, error_groups, hints, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.CourseKey, rec.ExerciseKey, rec.UserID, rec.Lang, rec.Ordinal,
		rec.Points, rec.MaxPoints, string(errorFields), string(errorGroups), string(hints),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetSubmission loads one submission by id.
func (s *SubmissionStore) GetSubmission(ctx context.Context, id uuid.UUID) (*submission.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, course_key, exercise_key, user_id, lang, ordinal,
			points, max_points, error_fields, error_groups, hints, created_at
		FROM submissions WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, submission.ErrNotFound
	}
	return rec, err
}

// ListSubmissions returns the newest submissions matching the filter, newest
// first. Empty filter values match everything.
func (s *SubmissionStore) ListSubmissions(ctx context.Context, courseKey, exerciseKey, userID string, limit int) ([]*submission.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_key, exercise_key, user_id, lang, ordinal,
			points, max_points, error_fields, error_groups, hints, created_at
		FROM submissions
		WHERE (? = '' OR course_key = ?)
		  AND (? = '' OR exercise_key = ?)
		  AND (? = '' OR user_id = ?)
		ORDER BY created_at DESC
		LIMIT ?`,
		courseKey, courseKey, exerciseKey, exerciseKey, userID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*submission.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SubmissionStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*submission.Record, error) {
	var (
		rec         submission.Record
		id          string
		errorFields string
		errorGroups string
		hints       string
	)
	err := row.Scan(&id, &rec.CourseKey, &rec.ExerciseKey, &rec.UserID, &rec.Lang, &rec.Ordinal,
		&rec.Points, &rec.MaxPoints, &errorFields, &errorGroups, &hints, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse submission id: %w", err)
	}
	if err := json.Unmarshal([]byte(errorFields), &rec.ErrorFields); err != nil {
		return nil, fmt.Errorf("unmarshal error_fields: %w", err)
	}
	if err := json.Unmarshal([]byte(errorGroups), &rec.ErrorGroups); err != nil {
		return nil, fmt.Errorf("unmarshal error_groups: %w", err)
	}
	if err := json.Unmarshal([]byte(hints), &rec.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	return &rec, nil
}
