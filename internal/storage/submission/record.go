// Package submission defines the stored shape of a graded submission,
// shared by the storage backends.
package submission

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound reports a missing submission record.
var ErrNotFound = errors.New("submission not found")

// Record is one graded submission.
type Record struct {
	ID          uuid.UUID           `json:"id"`
	CourseKey   string              `json:"course_key"`
	ExerciseKey string              `json:"exercise_key"`
	UserID      string              `json:"user_id"`
	Lang        string              `json:"lang"`
	Ordinal     int                 `json:"ordinal"`
	Points      int                 `json:"points"`
	MaxPoints   int                 `json:"max_points"`
	ErrorFields []string            `json:"error_fields"`
	ErrorGroups []string            `json:"error_groups"`
	Hints       map[string][]string `json:"hints"`
	CreatedAt   time.Time           `json:"created_at"`
}
