// Package analytics derives read-only learner and class reports from the
// attempt log.
package analytics

import (
	"sort"
	"time"

	"github.com/abhisek/adaptd/internal/attemptlog"
	"github.com/abhisek/adaptd/internal/diagnosis"
)

const (
	// TopErrorsPerLearner is how many error types a profile ranks.
	TopErrorsPerLearner = 3

	// TopErrorsPerClass is how many error types a class report ranks.
	TopErrorsPerClass = 5

	// RecentWindow is the number of latest attempts behind RecentAccuracy.
	RecentWindow = 5
)

// ErrorCount is how often one error type occurred.
type ErrorCount struct {
	Type  diagnosis.ErrorType `json:"type"`
	Count int                 `json:"count"`
}

// LearnerProfile summarises a learner's attempt history.
type LearnerProfile struct {
	LearnerID      string                      `json:"learner_id"`
	TotalAttempts  int                         `json:"total_attempts"`
	CorrectCount   int                         `json:"correct_count"`
	Accuracy       float64                     `json:"accuracy"`
	RecentAccuracy float64                     `json:"recent_accuracy"`
	ErrorCounts    map[diagnosis.ErrorType]int `json:"error_counts"`
	TopErrors      []ErrorCount                `json:"top_errors"`
	NodesPractised int                         `json:"nodes_practised"`
	LastAttemptAt  *time.Time                  `json:"last_attempt_at,omitempty"`
}

// Profile folds attempts, in sequence order, into a profile. Accuracy
// values are percentages; both are zero without attempts.
func Profile(learnerID string, attempts []attemptlog.Attempt) LearnerProfile {
	p := LearnerProfile{
		LearnerID:     learnerID,
		TotalAttempts: len(attempts),
		ErrorCounts:   make(map[diagnosis.ErrorType]int),
		TopErrors:     []ErrorCount{},
	}
	if len(attempts) == 0 {
		return p
	}

	nodes := make(map[string]struct{})
	for _, a := range attempts {
		nodes[a.NodeID] = struct{}{}
		if a.Correct {
			p.CorrectCount++
			continue
		}
		if a.ErrorType != "" {
			p.ErrorCounts[a.ErrorType]++
		}
	}
	p.NodesPractised = len(nodes)
	p.Accuracy = percent(p.CorrectCount, len(attempts))

	recent := attempts[max(0, len(attempts)-RecentWindow):]
	correct := 0
	for _, a := range recent {
		if a.Correct {
			correct++
		}
	}
	p.RecentAccuracy = percent(correct, len(recent))

	last := attempts[len(attempts)-1].Timestamp
	p.LastAttemptAt = &last
	p.TopErrors = TopErrors(p.ErrorCounts, TopErrorsPerLearner)
	return p
}

// TopErrors ranks counts by frequency, then by type name, and keeps n.
func TopErrors(counts map[diagnosis.ErrorType]int, n int) []ErrorCount {
	out := make([]ErrorCount, 0, len(counts))
	for t, c := range counts {
		if c > 0 {
			out = append(out, ErrorCount{Type: t, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
