package selector

import (
	"testing"
)

func policyWith(s Strategy) Policy {
	p := DefaultPolicy()
	p.Strategy = s
	return p
}

// feed observes a sequence of outcomes with mastery held below target.
func feed(s *Session, p Policy, outcomes ...bool) {
	for _, c := range outcomes {
		s.Observe(p, Observation{Correct: c, Difficulty: s.NextDifficulty(), MasteryBefore: 30, MasteryAfter: 30})
	}
}

func TestSession_ProbingStartsAtDefault(t *testing.T) {
	s := NewSession("linear-eq")
	if s.Phase != PhaseProbing {
		t.Errorf("Phase = %q, want probing", s.Phase)
	}
	if s.NextDifficulty() != 3 {
		t.Errorf("NextDifficulty() = %d, want 3", s.NextDifficulty())
	}
}

func TestSession_FirstAttemptEntersAdapting(t *testing.T) {
	s := NewSession("linear-eq")
	trs := s.Observe(DefaultPolicy(), Observation{Correct: true, Difficulty: 3, MasteryBefore: 0, MasteryAfter: 20})

	if len(trs) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(trs))
	}
	tr := trs[0]
	if tr.From != PhaseProbing || tr.To != PhaseAdapting || tr.Trigger != TriggerFirstAttempt {
		t.Errorf("transition = %+v", tr)
	}
	if tr.NodeID != "linear-eq" {
		t.Errorf("NodeID = %q", tr.NodeID)
	}
}

func TestSession_StrategyAdjustments(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		outcomes []bool
		want     int
	}{
		{"aggressive up", StrategyAggressive, []bool{true}, 4},
		{"aggressive up twice", StrategyAggressive, []bool{true, true}, 5},
		{"aggressive down", StrategyAggressive, []bool{false}, 2},
		{"aggressive alternating", StrategyAggressive, []bool{true, false, true}, 4},
		{"aggressive clamps at max", StrategyAggressive, []bool{true, true, true, true}, 5},
		{"aggressive clamps at min", StrategyAggressive, []bool{false, false, false, false}, 1},
		{"balanced needs three", StrategyBalanced, []bool{true, true}, 3},
		{"balanced moves after three", StrategyBalanced, []bool{true, true, true}, 4},
		{"balanced streak broken", StrategyBalanced, []bool{true, true, false, true, true}, 3},
		{"balanced streak resets after adjustment", StrategyBalanced, []bool{true, true, true, true, true}, 4},
		{"balanced six in a row", StrategyBalanced, []bool{true, true, true, true, true, true}, 5},
		{"balanced down", StrategyBalanced, []bool{false, false, false}, 2},
		{"gentle needs two", StrategyGentle, []bool{true}, 3},
		{"gentle moves after two", StrategyGentle, []bool{true, true}, 4},
		{"gentle waits for window", StrategyGentle, []bool{true, true, true, true}, 4},
		{"gentle moves again after window", StrategyGentle, []bool{true, true, true, true, true, true, true}, 5},
		{"gentle down", StrategyGentle, []bool{false, false}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("n")
			feed(s, policyWith(tt.strategy), tt.outcomes...)
			if s.Difficulty != tt.want {
				t.Errorf("Difficulty = %d, want %d", s.Difficulty, tt.want)
			}
			if s.Phase != PhaseAdapting {
				t.Errorf("Phase = %q, want adapting", s.Phase)
			}
		})
	}
}

func TestSession_GentleAdjustsAtMostOncePerWindow(t *testing.T) {
	p := policyWith(StrategyGentle)
	s := NewSession("n")

	adjustments := 0
	prev := s.Difficulty
	for i := 0; i < p.GentleWindow; i++ {
		feed(s, p, true)
		if s.Difficulty != prev {
			adjustments++
			prev = s.Difficulty
		}
	}
	if adjustments != 1 {
		t.Errorf("adjustments in one window = %d, want 1", adjustments)
	}
}

func TestSession_ReachesConsolidatingAndMastered(t *testing.T) {
	p := DefaultPolicy()
	s := NewSession("n")
	feed(s, p, true, true, true) // difficulty 4

	trs := s.Observe(p, Observation{Correct: true, Difficulty: 4, MasteryBefore: 75, MasteryAfter: 82})
	if len(trs) != 1 || trs[0].To != PhaseConsolidating || trs[0].Trigger != TriggerTargetReached {
		t.Fatalf("transitions = %+v, want adapting -> consolidating", trs)
	}
	if s.ConsolidationDifficulty != 4 {
		t.Errorf("ConsolidationDifficulty = %d, want 4", s.ConsolidationDifficulty)
	}
	if s.NextDifficulty() != 4 {
		t.Errorf("NextDifficulty() = %d, want 4", s.NextDifficulty())
	}

	// Attempts below the consolidation difficulty do not count.
	s.Observe(p, Observation{Correct: true, Difficulty: 2, MasteryBefore: 82, MasteryAfter: 85})
	if s.ConsolidationStreak != 0 {
		t.Errorf("ConsolidationStreak = %d after easy attempt, want 0", s.ConsolidationStreak)
	}

	for i := 0; i < p.AttemptsBeforeStrategyChange-1; i++ {
		if trs := s.Observe(p, Observation{Correct: true, Difficulty: 4, MasteryBefore: 85, MasteryAfter: 88}); len(trs) != 0 {
			t.Fatalf("unexpected transition %+v", trs)
		}
	}
	trs = s.Observe(p, Observation{Correct: true, Difficulty: 5, MasteryBefore: 88, MasteryAfter: 90})
	if len(trs) != 1 || trs[0].From != PhaseConsolidating || trs[0].To != PhaseMastered || trs[0].Trigger != TriggerConsolidated {
		t.Fatalf("transitions = %+v, want consolidating -> mastered", trs)
	}
}

func TestSession_ConsolidationMissReturnsToAdapting(t *testing.T) {
	p := DefaultPolicy()
	s := &Session{NodeID: "n", Phase: PhaseConsolidating, Difficulty: 4, ConsolidationDifficulty: 4, ConsolidationStreak: 2}

	trs := s.Observe(p, Observation{Correct: false, Difficulty: 4, MasteryBefore: 85, MasteryAfter: 78})
	if len(trs) != 1 || trs[0].To != PhaseAdapting || trs[0].Trigger != TriggerConsolidationMiss {
		t.Fatalf("transitions = %+v, want consolidating -> adapting", trs)
	}
	if s.ConsolidationStreak != 0 {
		t.Errorf("ConsolidationStreak = %d, want 0", s.ConsolidationStreak)
	}
}

func TestSession_MasteredRegression(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		after   int
		regress bool
	}{
		{"at target", 80, false},
		{"at margin", 70, false},
		{"below margin", 69, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{NodeID: "n", Phase: PhaseMastered, Difficulty: 4, ConsolidationDifficulty: 4}
			trs := s.Observe(p, Observation{Correct: false, Difficulty: 4, MasteryBefore: 85, MasteryAfter: tt.after})
			if got := len(trs) == 1 && trs[0].Trigger == TriggerMasteryRegressed; got != tt.regress {
				t.Errorf("regressed = %v, want %v (transitions %+v)", got, tt.regress, trs)
			}
		})
	}
}

func TestSession_ChainedTransitionsOnFirstAttempt(t *testing.T) {
	s := NewSession("n")
	trs := s.Observe(DefaultPolicy(), Observation{Correct: true, Difficulty: 3, MasteryBefore: 79, MasteryAfter: 83})

	if len(trs) != 2 {
		t.Fatalf("expected 2 transitions, got %+v", trs)
	}
	if trs[0].To != PhaseAdapting || trs[1].To != PhaseConsolidating {
		t.Errorf("transitions = %+v", trs)
	}
	if s.ConsolidationDifficulty != 3 {
		t.Errorf("ConsolidationDifficulty = %d, want 3", s.ConsolidationDifficulty)
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	bad := []Policy{
		{Strategy: "reckless", TargetMasteryPercent: 80, AttemptsBeforeStrategyChange: 3, GentleWindow: 5},
		{Strategy: StrategyBalanced, TargetMasteryPercent: 59, AttemptsBeforeStrategyChange: 3, GentleWindow: 5},
		{Strategy: StrategyBalanced, TargetMasteryPercent: 101, AttemptsBeforeStrategyChange: 3, GentleWindow: 5},
		{Strategy: StrategyBalanced, TargetMasteryPercent: 80, AttemptsBeforeStrategyChange: 0, GentleWindow: 5},
		{Strategy: StrategyBalanced, TargetMasteryPercent: 80, AttemptsBeforeStrategyChange: 3, GentleWindow: 0},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", p)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy(" Gentle ")
	if err != nil || got != StrategyGentle {
		t.Errorf("ParseStrategy(Gentle) = %q, %v", got, err)
	}
	if _, err := ParseStrategy("fast"); err == nil {
		t.Error("ParseStrategy(fast) = nil error")
	}
}

func TestDifficultyLabel(t *testing.T) {
	want := map[int]string{1: "easy", 2: "easy", 3: "medium", 4: "hard", 5: "hard"}
	for d, label := range want {
		if got := DifficultyLabel(d); got != label {
			t.Errorf("DifficultyLabel(%d) = %q, want %q", d, got, label)
		}
	}
}

func TestSession_ConsolidatingRequiresCrossingFromBelow(t *testing.T) {
	p := DefaultPolicy()
	s := &Session{NodeID: "n", Phase: PhaseConsolidating, Difficulty: 5, ConsolidationDifficulty: 5}

	trs := s.Observe(p, Observation{Correct: false, Difficulty: 5, MasteryBefore: 95, MasteryAfter: 86})
	if len(trs) != 1 || trs[0].To != PhaseAdapting {
		t.Fatalf("transitions = %+v, want consolidating -> adapting", trs)
	}

	// Still above target: a correct answer is not a crossing.
	if trs := s.Observe(p, Observation{Correct: true, Difficulty: 5, MasteryBefore: 86, MasteryAfter: 90}); len(trs) != 0 {
		t.Fatalf("transitions = %+v, want none", trs)
	}
	if s.Phase != PhaseAdapting {
		t.Fatalf("Phase = %q, want adapting", s.Phase)
	}

	s.Observe(p, Observation{Correct: false, Difficulty: 5, MasteryBefore: 90, MasteryAfter: 78})
	trs = s.Observe(p, Observation{Correct: true, Difficulty: 5, MasteryBefore: 78, MasteryAfter: 83})
	if len(trs) != 1 || trs[0].Trigger != TriggerTargetReached {
		t.Fatalf("transitions = %+v, want adapting -> consolidating", trs)
	}
}

func TestSession_EasierTaskBreaksConsolidationRun(t *testing.T) {
	p := DefaultPolicy()
	s := &Session{NodeID: "n", Phase: PhaseConsolidating, Difficulty: 4, ConsolidationDifficulty: 4, ConsolidationStreak: 2}

	if trs := s.Observe(p, Observation{Correct: true, Difficulty: 3, MasteryBefore: 85, MasteryAfter: 87}); len(trs) != 0 {
		t.Fatalf("transitions = %+v, want none", trs)
	}
	if s.Phase != PhaseConsolidating || s.ConsolidationStreak != 0 {
		t.Fatalf("Phase = %q, ConsolidationStreak = %d, want consolidating with 0", s.Phase, s.ConsolidationStreak)
	}

	if trs := s.Observe(p, Observation{Correct: true, Difficulty: 4, MasteryBefore: 87, MasteryAfter: 89}); len(trs) != 0 {
		t.Fatalf("one attempt after the break should not master, got %+v", trs)
	}
	if s.ConsolidationStreak != 1 {
		t.Errorf("ConsolidationStreak = %d, want 1", s.ConsolidationStreak)
	}
}

func TestSelector_SessionCopyReportsNextDifficulty(t *testing.T) {
	sel := New(policyWith(StrategyAggressive))
	if got := sel.Session("n").NextDifficulty(); got != DefaultDifficulty {
		t.Fatalf("NextDifficulty() of a fresh session = %d, want %d", got, DefaultDifficulty)
	}
	sel.Observe("n", Observation{Correct: true, Difficulty: 3, MasteryBefore: 0, MasteryAfter: 20})
	if got := sel.Session("n").NextDifficulty(); got != 4 {
		t.Fatalf("NextDifficulty() = %d, want 4", got)
	}
}
