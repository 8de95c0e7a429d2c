// Package mastery turns attempt outcomes into mastery updates.
package mastery

import (
	"fmt"
	"time"

	"github.com/abhisek/adaptd/internal/diagnosis"
	"github.com/abhisek/adaptd/internal/knowledge"
)

const (
	// DefaultLearningRate is the step size k of the update rule.
	DefaultLearningRate = 0.2

	// DefaultConceptualPenalty scales the downward step for conceptual errors.
	DefaultConceptualPenalty = 1.3

	MinDifficulty = 1
	MaxDifficulty = 5
)

// Config holds the estimator constants.
type Config struct {
	LearningRate      float64
	ConceptualPenalty float64
}

// DefaultConfig returns the standard estimator constants.
func DefaultConfig() Config {
	return Config{
		LearningRate:      DefaultLearningRate,
		ConceptualPenalty: DefaultConceptualPenalty,
	}
}

// Validate rejects constants that would break monotonicity.
func (c Config) Validate() error {
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning rate must be in (0, 1], got %g", c.LearningRate)
	}
	if c.ConceptualPenalty < 1 {
		return fmt.Errorf("conceptual penalty must be >= 1, got %g", c.ConceptualPenalty)
	}
	return nil
}

// Outcome is what the estimator needs to know about one attempt.
type Outcome struct {
	Correct    bool
	Difficulty int
	ErrorType  diagnosis.ErrorType // only meaningful when !Correct
}

// DifficultyWeight maps difficulty 1–5 linearly onto [0.5, 1.5].
// Out-of-range difficulties are clamped.
func DifficultyWeight(d int) float64 {
	d = ClampDifficulty(d)
	return 0.5 + float64(d-1)*0.25
}

// ClampDifficulty bounds d to [MinDifficulty, MaxDifficulty].
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Estimator applies the update rule
//
//	new = old + k·w·(outcome − old/100)·100
//
// where outcome is 1 for a correct answer and 0 otherwise. Correct answers
// are weighted by the attempt's difficulty and incorrect answers by its
// complement, so a hard success and an easy failure move mastery the most.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator. Zero-valued fields fall back to the
// defaults.
func NewEstimator(cfg Config) *Estimator {
	def := DefaultConfig()
	if cfg.LearningRate == 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.ConceptualPenalty == 0 {
		cfg.ConceptualPenalty = def.ConceptualPenalty
	}
	return &Estimator{cfg: cfg}
}

// Config returns the estimator constants in use.
func (e *Estimator) Config() Config { return e.cfg }

// Estimate returns the new mastery for a leaf currently at old.
//
// The result is rounded half up and clamped to [0, 100]. A correct attempt
// below 100 always gains at least one point and an incorrect attempt above
// 0 always loses at least one point.
func (e *Estimator) Estimate(old int, o Outcome) int {
	var outcome, w float64
	if o.Correct {
		outcome = 1
		w = DifficultyWeight(o.Difficulty)
	} else {
		w = DifficultyWeight(MaxDifficulty + 1 - ClampDifficulty(o.Difficulty))
		if o.ErrorType == diagnosis.ErrorConceptual {
			w *= e.cfg.ConceptualPenalty
		}
	}

	delta := e.cfg.LearningRate * w * (outcome - float64(old)/100) * 100
	next := knowledge.RoundHalfUp(float64(old) + delta)

	switch {
	case o.Correct && old < knowledge.MaxMastery && next <= old:
		next = old + 1
	case !o.Correct && old > 0 && next >= old:
		next = old - 1
	}
	return clamp(next, 0, knowledge.MaxMastery)
}

// Result describes one applied update.
type Result struct {
	Before knowledge.Node
	After  knowledge.Node
}

// Apply estimates the new mastery for nodeID and writes it to g together
// with the attempt aggregates. The leaf version read here guards the write.
func (e *Estimator) Apply(g *knowledge.Graph, nodeID string, o Outcome, at time.Time) (Result, error) {
	before, err := g.Leaf(nodeID)
	if err != nil {
		return Result{}, err
	}
	after, err := g.Apply(knowledge.Update{
		NodeID:          nodeID,
		Mastery:         e.Estimate(before.Mastery, o),
		ExpectedVersion: before.Version,
		Correct:         o.Correct,
		At:              at,
	})
	if err != nil {
		return Result{}, fmt.Errorf("apply mastery for %s: %w", nodeID, err)
	}
	return Result{Before: before, After: after}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
