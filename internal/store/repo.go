package store

import (
	"context"
	"time"

	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/llm"
	"github.com/abhisek/adaptd/internal/selector"
)

// SnapshotDataVersion is the current layout of SnapshotData.
const SnapshotDataVersion = 1

// SnapshotData captures one learner's state at a point in the attempt log.
type SnapshotData struct {
	Version  int                   `json:"version"`
	Nodes    []knowledge.NodeState `json:"nodes"`
	Sessions []selector.Session    `json:"sessions,omitempty"`
}

// Snapshot is a point-in-time capture of learner state. Sequence is the
// last attempt sequence folded into Data.
type Snapshot struct {
	ID        int
	LearnerID string
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages learner state snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot and sets its ID.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the learner's most recent snapshot, or nil if none exist.
	Latest(ctx context.Context, learnerID string) (*Snapshot, error)

	// Prune deletes all but the keep most recent snapshots of the learner.
	Prune(ctx context.Context, learnerID string, keep int) error
}

// TransitionEvent is a persisted selector phase change.
type TransitionEvent struct {
	Sequence  int64
	LearnerID string
	Timestamp time.Time
	selector.Transition
}

// EventRepo provides append access to domain events. It also serves as the
// sink for LLM request events.
type EventRepo interface {
	llm.EventSink

	// AppendTransition records a selector phase change.
	AppendTransition(ctx context.Context, learnerID string, tr selector.Transition, at time.Time) error

	// Transitions returns the learner's phase changes, oldest first.
	Transitions(ctx context.Context, learnerID string) ([]TransitionEvent, error)

	// LLMUsage sums the recorded LLM calls and their estimated cost.
	LLMUsage(ctx context.Context) (calls int, costUSD float64, err error)
}
