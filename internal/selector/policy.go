// Package selector decides the difficulty and topic of the next task.
package selector

import (
	"fmt"
	"strings"
)

// Strategy controls how quickly difficulty follows performance.
type Strategy string

const (
	StrategyAggressive Strategy = "aggressive"
	StrategyBalanced   Strategy = "balanced"
	StrategyGentle     Strategy = "gentle"
)

// AllStrategies returns the strategies from fastest to slowest.
func AllStrategies() []Strategy {
	return []Strategy{StrategyAggressive, StrategyBalanced, StrategyGentle}
}

// ParseStrategy parses a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStrategies() {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q (want aggressive, balanced or gentle)", s)
}

const (
	DefaultTargetMastery  = 80
	MinTargetMastery      = 60
	MaxTargetMastery      = 100
	DefaultAttemptsBefore = 3
	DefaultGentleWindow   = 5

	// RegressionMargin is how far below target a mastered node may fall
	// before it returns to adapting.
	RegressionMargin = 10
)

// Policy is the adaptation configuration. It is not runtime state.
type Policy struct {
	Strategy                     Strategy `json:"strategy" yaml:"strategy"`
	TargetMasteryPercent         int      `json:"target_mastery_percent" yaml:"target_mastery_percent"`
	AttemptsBeforeStrategyChange int      `json:"attempts_before_strategy_change" yaml:"attempts_before_strategy_change"`

	// GentleWindow is the minimum number of attempts between two
	// adjustments under the gentle strategy.
	GentleWindow int `json:"gentle_window" yaml:"gentle_window"`
}

// DefaultPolicy returns the recommended policy.
func DefaultPolicy() Policy {
	return Policy{
		Strategy:                     StrategyBalanced,
		TargetMasteryPercent:         DefaultTargetMastery,
		AttemptsBeforeStrategyChange: DefaultAttemptsBefore,
		GentleWindow:                 DefaultGentleWindow,
	}
}

// Validate rejects out-of-range values.
func (p Policy) Validate() error {
	var errs []string
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		errs = append(errs, err.Error())
	}
	if p.TargetMasteryPercent < MinTargetMastery || p.TargetMasteryPercent > MaxTargetMastery {
		errs = append(errs, fmt.Sprintf("target mastery must be in [%d, %d], got %d", MinTargetMastery, MaxTargetMastery, p.TargetMasteryPercent))
	}
	if p.AttemptsBeforeStrategyChange < 1 {
		errs = append(errs, fmt.Sprintf("attempts before strategy change must be >= 1, got %d", p.AttemptsBeforeStrategyChange))
	}
	if p.GentleWindow < 1 {
		errs = append(errs, fmt.Sprintf("gentle window must be >= 1, got %d", p.GentleWindow))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid adaptation policy: %s", strings.Join(errs, "; "))
	}
	return nil
}
