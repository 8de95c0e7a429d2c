package knowledge

import "time"

// Level is one tier of the fixed four-level taxonomy.
type Level string

const (
	LevelSubject Level = "subject"
	LevelSection Level = "section"
	LevelTopic   Level = "topic"
	LevelElement Level = "element"
)

// AllLevels returns the levels from root to leaf.
func AllLevels() []Level {
	return []Level{LevelSubject, LevelSection, LevelTopic, LevelElement}
}

// Depth returns the tier index (subject = 0, element = 3), or -1 for an
// unknown level.
func (l Level) Depth() int {
	switch l {
	case LevelSubject:
		return 0
	case LevelSection:
		return 1
	case LevelTopic:
		return 2
	case LevelElement:
		return 3
	default:
		return -1
	}
}

// Valid reports whether l is one of the four taxonomy levels.
func (l Level) Valid() bool {
	return l.Depth() >= 0
}

// Status is the display state derived from a node's mastery.
// It is computed on read and never stored.
type Status string

const (
	StatusMastered   Status = "mastered"
	StatusLearning   Status = "learning"
	StatusNeedsWork  Status = "needs-work"
	StatusNotStarted Status = "not-started"
)

const (
	// MasteredThreshold is the minimum mastery for StatusMastered.
	MasteredThreshold = 80

	// LearningThreshold is the minimum mastery for StatusLearning.
	LearningThreshold = 40

	// MaxMastery is the upper bound of every mastery value.
	MaxMastery = 100
)

// StatusFor derives the status of a node from its mastery and the number of
// attempts recorded in its subtree.
func StatusFor(mastery, attempts int) Status {
	switch {
	case attempts == 0:
		return StatusNotStarted
	case mastery >= MasteredThreshold:
		return StatusMastered
	case mastery >= LearningThreshold:
		return StatusLearning
	default:
		return StatusNeedsWork
	}
}

// Node is a read-only copy of one taxonomy entry together with its current
// mastery state. Children is only populated in snapshot trees.
type Node struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Level         Level      `json:"level"`
	ParentID      string     `json:"parent_id,omitempty"`
	Weight        float64    `json:"weight"`
	Mastery       int        `json:"mastery_level"`
	Status        Status     `json:"status"`
	ErrorCount    int        `json:"error_count"`
	AttemptCount  int        `json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	Version       int64      `json:"version"`
	Children      []*Node    `json:"children,omitempty"`
}

// IsLeaf reports whether the node accepts attempts directly.
func (n *Node) IsLeaf() bool {
	return n.Level == LevelElement
}

// NodeState is the persisted mastery state of a single leaf.
type NodeState struct {
	ID            string     `json:"id"`
	Mastery       int        `json:"mastery"`
	ErrorCount    int        `json:"error_count"`
	AttemptCount  int        `json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	Version       int64      `json:"version"`
}

// Update describes one mastery write produced by the estimator.
type Update struct {
	NodeID  string
	Mastery int

	// ExpectedVersion is the leaf version the new value was computed from.
	ExpectedVersion int64

	// Correct and At describe the attempt outcome that is folded into the
	// cached aggregates in the same transaction.
	Correct bool
	At      time.Time
}
