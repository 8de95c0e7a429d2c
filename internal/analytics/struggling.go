package analytics

import (
	"fmt"
	"sort"

	"github.com/abhisek/adaptd/internal/diagnosis"
)

// Criteria decide who counts as struggling.
type Criteria struct {
	// A learner below MinAccuracy percent is struggling.
	MinAccuracy float64 `json:"min_accuracy"`

	// A learner with more than MaxRepeatedErrors of one error type is
	// struggling.
	MaxRepeatedErrors int `json:"max_repeated_errors"`

	// Struggling learners below IndividualSupportBelow percent are flagged
	// for individual support.
	IndividualSupportBelow float64 `json:"individual_support_below"`

	// More than GroupSupportAbove struggling learners flags the class for
	// group support.
	GroupSupportAbove int `json:"group_support_above"`
}

// DefaultCriteria returns the default struggling thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinAccuracy:            50,
		MaxRepeatedErrors:      5,
		IndividualSupportBelow: 30,
		GroupSupportAbove:      5,
	}
}

// Validate checks the thresholds.
func (c Criteria) Validate() error {
	if c.MinAccuracy < 0 || c.MinAccuracy > 100 {
		return fmt.Errorf("min accuracy must be in [0,100], got %v", c.MinAccuracy)
	}
	if c.IndividualSupportBelow < 0 || c.IndividualSupportBelow > 100 {
		return fmt.Errorf("individual support threshold must be in [0,100], got %v", c.IndividualSupportBelow)
	}
	if c.MaxRepeatedErrors < 0 {
		return fmt.Errorf("max repeated errors must be >= 0, got %d", c.MaxRepeatedErrors)
	}
	if c.GroupSupportAbove < 0 {
		return fmt.Errorf("group support threshold must be >= 0, got %d", c.GroupSupportAbove)
	}
	return nil
}

// Reason names why a learner was reported.
type Reason string

const (
	ReasonLowAccuracy    Reason = "low_accuracy"
	ReasonRepeatedErrors Reason = "repeated_errors"
)

// StrugglingLearner is one entry of a StrugglingReport.
type StrugglingLearner struct {
	LearnerID         string       `json:"learner_id"`
	Accuracy          float64      `json:"accuracy"`
	TotalAttempts     int          `json:"total_attempts"`
	TopErrors         []ErrorCount `json:"top_errors"`
	Reasons           []Reason     `json:"reasons"`
	IndividualSupport bool         `json:"individual_support"`
}

// StrugglingReport lists the struggling learners of a class.
type StrugglingReport struct {
	LearnerCount    int                 `json:"learner_count"`
	StrugglingCount int                 `json:"struggling_count"`
	AverageAccuracy float64             `json:"average_accuracy"`
	Learners        []StrugglingLearner `json:"learners"`
	CommonErrors    []ErrorCount        `json:"common_errors"`
	GroupSupport    bool                `json:"group_support"`
}

// Struggling reports the profiles that meet c, lowest accuracy first.
// CommonErrors ranks error types across every profile, not only the
// struggling ones.
func Struggling(profiles []LearnerProfile, c Criteria) StrugglingReport {
	r := StrugglingReport{
		LearnerCount: len(profiles),
		Learners:     []StrugglingLearner{},
	}

	class := make(map[diagnosis.ErrorType]int)
	var accuracySum float64
	for _, p := range profiles {
		accuracySum += p.Accuracy
		for t, n := range p.ErrorCounts {
			class[t] += n
		}

		reasons := c.reasons(p)
		if len(reasons) == 0 {
			continue
		}
		r.Learners = append(r.Learners, StrugglingLearner{
			LearnerID:         p.LearnerID,
			Accuracy:          p.Accuracy,
			TotalAttempts:     p.TotalAttempts,
			TopErrors:         TopErrors(p.ErrorCounts, TopErrorsPerLearner),
			Reasons:           reasons,
			IndividualSupport: p.Accuracy < c.IndividualSupportBelow,
		})
	}
	if len(profiles) > 0 {
		r.AverageAccuracy = accuracySum / float64(len(profiles))
	}

	sort.SliceStable(r.Learners, func(i, j int) bool {
		if r.Learners[i].Accuracy != r.Learners[j].Accuracy {
			return r.Learners[i].Accuracy < r.Learners[j].Accuracy
		}
		return r.Learners[i].LearnerID < r.Learners[j].LearnerID
	})
	r.StrugglingCount = len(r.Learners)
	r.CommonErrors = TopErrors(class, TopErrorsPerClass)
	r.GroupSupport = r.StrugglingCount > c.GroupSupportAbove
	return r
}

func (c Criteria) reasons(p LearnerProfile) []Reason {
	if p.TotalAttempts == 0 {
		return nil
	}
	var out []Reason
	if p.Accuracy < c.MinAccuracy {
		out = append(out, ReasonLowAccuracy)
	}
	for _, n := range p.ErrorCounts {
		if n > c.MaxRepeatedErrors {
			out = append(out, ReasonRepeatedErrors)
			break
		}
	}
	return out
}
