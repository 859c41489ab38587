// Package storage persists graded submissions. Two backends are provided:
// SQLite for single-node deployments and PostgreSQL for shared ones, selected
// by the database URL scheme.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/mlahtinen/gradery/internal/storage/postgres"
	"github.com/mlahtinen/gradery/internal/storage/sqlite"
	"github.com/mlahtinen/gradery/internal/storage/submission"
)

// ErrNotFound reports a missing submission record.
var ErrNotFound = submission.ErrNotFound

// Record is a stored grading outcome.
type Record = submission.Record

// Store persists graded submissions.
type Store interface {
	SaveSubmission(ctx context.Context, rec *Record) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*Record, error)
	ListSubmissions(ctx context.Context, courseKey, exerciseKey, userID string, limit int) ([]*Record, error)
	Close() error
}

// Open selects a backend from the database URL. "postgres://" URLs open a
// PostgreSQL pool; anything else is treated as a SQLite file path, with an
// optional "sqlite://" prefix.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is empty")
	}
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.New(ctx, databaseURL)
	}
	path := strings.TrimPrefix(databaseURL, "sqlite://")
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return sqlite.NewSubmissionStore(db), nil
}
