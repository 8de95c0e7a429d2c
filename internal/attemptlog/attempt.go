// Package attemptlog defines the append-only record of learner attempts.
package attemptlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/adaptd/internal/diagnosis"
)

// ErrInvalidAttempt is returned by Append for attempts that fail Validate.
var ErrInvalidAttempt = errors.New("invalid attempt")

// Attempt is one graded answer. Attempts are immutable once appended.
type Attempt struct {
	ID               uuid.UUID           `json:"id"`
	Sequence         int64               `json:"sequence"`
	LearnerID        string              `json:"learner_id"`
	NodeID           string              `json:"node_id"`
	Timestamp        time.Time           `json:"timestamp"`
	Correct          bool                `json:"correct"`
	TimeSpentSeconds float64             `json:"time_spent_seconds"`
	Difficulty       int                 `json:"difficulty"`
	ErrorType        diagnosis.ErrorType `json:"error_type,omitempty"`
	Classifier       string              `json:"classifier,omitempty"`
}

// Validate checks the fields a log relies on.
func (a *Attempt) Validate() error {
	switch {
	case a.LearnerID == "":
		return fmt.Errorf("%w: learner ID is required", ErrInvalidAttempt)
	case a.NodeID == "":
		return fmt.Errorf("%w: node ID is required", ErrInvalidAttempt)
	case a.Difficulty < 1 || a.Difficulty > 5:
		return fmt.Errorf("%w: difficulty %d out of range 1-5", ErrInvalidAttempt, a.Difficulty)
	case a.TimeSpentSeconds < 0:
		return fmt.Errorf("%w: negative time spent", ErrInvalidAttempt)
	case a.Correct && a.ErrorType != "":
		return fmt.Errorf("%w: correct attempt carries error type %q", ErrInvalidAttempt, a.ErrorType)
	case !a.Correct && !a.ErrorType.Valid():
		return fmt.Errorf("%w: incorrect attempt needs an error type, got %q", ErrInvalidAttempt, a.ErrorType)
	}
	return nil
}

// Log is the append-only attempt store.
type Log interface {
	// Append validates a, assigns its ID when unset and its global
	// sequence, and stores it.
	Append(ctx context.Context, a *Attempt) error

	// Since returns the learner's attempts with a sequence greater than
	// after, in sequence order.
	Since(ctx context.Context, learnerID string, after int64) ([]Attempt, error)

	// Learners returns the IDs of all learners with at least one attempt,
	// sorted.
	Learners(ctx context.Context) ([]string, error)
}

// Prepare validates a and fills its ID and timestamp when unset. Log
// implementations call it before assigning a sequence.
func Prepare(a *Attempt) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.UTC()
	return nil
}
