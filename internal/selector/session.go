package selector

// Observation is one graded attempt as seen by the selector.
type Observation struct {
	Correct       bool
	Difficulty    int // difficulty the attempt was served at
	MasteryBefore int
	MasteryAfter  int
}

// Session is the adaptation state of one learner on one element.
type Session struct {
	NodeID     string `json:"node_id"`
	Phase      Phase  `json:"phase"`
	Difficulty int    `json:"difficulty"`
	Attempts   int    `json:"attempts"`

	// Streak counts consecutive same-direction outcomes since the last
	// adjustment: positive for correct, negative for incorrect.
	Streak int `json:"streak"`

	// LastAdjustedAt is the attempt number of the last gentle adjustment.
	LastAdjustedAt int `json:"last_adjusted_at,omitempty"`

	ConsolidationDifficulty int `json:"consolidation_difficulty,omitempty"`
	ConsolidationStreak     int `json:"consolidation_streak,omitempty"`
}

// NewSession returns a session in the probing phase at the default
// difficulty.
func NewSession(nodeID string) *Session {
	return &Session{
		NodeID:     nodeID,
		Phase:      PhaseProbing,
		Difficulty: DefaultDifficulty,
	}
}

// Observe advances the session by one attempt and returns the phase
// changes it caused, in order. A single attempt may chain several
// transitions, e.g. probing to adapting to consolidating.
func (s *Session) Observe(p Policy, o Observation) []Transition {
	s.Attempts++
	s.bumpStreak(o.Correct)

	var out []Transition
	move := func(to Phase, trigger string) {
		out = append(out, Transition{NodeID: s.NodeID, From: s.Phase, To: to, Trigger: trigger})
		s.Phase = to
	}

	if s.Phase == PhaseProbing {
		move(PhaseAdapting, TriggerFirstAttempt)
	}

	switch s.Phase {
	case PhaseAdapting:
		if o.Correct && o.MasteryBefore < p.TargetMasteryPercent && o.MasteryAfter >= p.TargetMasteryPercent {
			s.ConsolidationDifficulty = s.Difficulty
			s.ConsolidationStreak = 0
			s.Streak = 0
			move(PhaseConsolidating, TriggerTargetReached)
			return out
		}
		s.adjust(p, o.Correct)

	case PhaseConsolidating:
		if !o.Correct {
			s.ConsolidationStreak = 0
			s.Streak = -1
			move(PhaseAdapting, TriggerConsolidationMiss)
			return out
		}
		// An easier task breaks the run without leaving the phase.
		if o.Difficulty < s.ConsolidationDifficulty {
			s.ConsolidationStreak = 0
			break
		}
		s.ConsolidationStreak++
		if s.ConsolidationStreak >= p.AttemptsBeforeStrategyChange {
			s.ConsolidationStreak = 0
			s.Streak = 0
			move(PhaseMastered, TriggerConsolidated)
		}

	case PhaseMastered:
		if o.MasteryAfter < p.TargetMasteryPercent-RegressionMargin {
			s.Streak = 0
			move(PhaseAdapting, TriggerMasteryRegressed)
		}
	}
	return out
}

// NextDifficulty is the difficulty of the next task for this session.
func (s Session) NextDifficulty() int {
	switch s.Phase {
	case PhaseProbing:
		return DefaultDifficulty
	case PhaseConsolidating:
		return clampDifficulty(s.ConsolidationDifficulty)
	default:
		return clampDifficulty(s.Difficulty)
	}
}

func (s *Session) bumpStreak(correct bool) {
	switch {
	case correct && s.Streak >= 0:
		s.Streak++
	case correct:
		s.Streak = 1
	case s.Streak <= 0:
		s.Streak--
	default:
		s.Streak = -1
	}
}

// adjust moves the difficulty by one step when the strategy allows it.
func (s *Session) adjust(p Policy, correct bool) {
	step := 1
	if !correct {
		step = -1
	}
	run := s.Streak
	if run < 0 {
		run = -run
	}

	switch p.Strategy {
	case StrategyAggressive:
		s.Difficulty = clampDifficulty(s.Difficulty + step)
		s.Streak = 0
	case StrategyGentle:
		if run < 2 {
			return
		}
		if s.LastAdjustedAt > 0 && s.Attempts-s.LastAdjustedAt < p.GentleWindow {
			return
		}
		s.Difficulty = clampDifficulty(s.Difficulty + step)
		s.LastAdjustedAt = s.Attempts
		s.Streak = 0
	default:
		if run < p.AttemptsBeforeStrategyChange {
			return
		}
		s.Difficulty = clampDifficulty(s.Difficulty + step)
		s.Streak = 0
	}
}
