package selector

// Phase is a learner's position in the adaptation lifecycle of one element.
type Phase string

const (
	PhaseProbing       Phase = "probing"
	PhaseAdapting      Phase = "adapting"
	PhaseConsolidating Phase = "consolidating"
	PhaseMastered      Phase = "mastered"
)

// Transition triggers.
const (
	TriggerFirstAttempt      = "first-attempt"
	TriggerTargetReached     = "target-reached"
	TriggerConsolidated      = "consolidated"
	TriggerConsolidationMiss = "consolidation-miss"
	TriggerMasteryRegressed  = "mastery-regressed"
)

// Transition records a phase change.
type Transition struct {
	NodeID  string `json:"node_id"`
	From    Phase  `json:"from"`
	To      Phase  `json:"to"`
	Trigger string `json:"trigger"`
}

const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 3
)

// DifficultyLabel returns "easy" for 1–2, "medium" for 3 and "hard" above.
func DifficultyLabel(d int) string {
	switch {
	case d <= 2:
		return "easy"
	case d == 3:
		return "medium"
	default:
		return "hard"
	}
}

func clampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}
