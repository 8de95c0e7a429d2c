package selector

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/adaptd/internal/knowledge"
)

func newGraph(t *testing.T) *knowledge.Graph {
	t.Helper()
	g, err := knowledge.Build(knowledge.DefaultCurriculum())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return g
}

func setMastery(t *testing.T, g *knowledge.Graph, id string, m int, at time.Time) {
	t.Helper()
	leaf, err := g.Leaf(id)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Apply(knowledge.Update{NodeID: id, Mastery: m, ExpectedVersion: leaf.Version, Correct: true, At: at}); err != nil {
		t.Fatal(err)
	}
}

func TestChooseLeaf_LeafIsItself(t *testing.T) {
	g := newGraph(t)
	n, err := ChooseLeaf(g, "pythagoras")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "pythagoras" {
		t.Errorf("ChooseLeaf(pythagoras) = %q", n.ID)
	}
}

func TestChooseLeaf_TieBreaks(t *testing.T) {
	g := newGraph(t)
	t0 := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)

	// All untouched: lowest ID wins.
	n, err := ChooseLeaf(g, "equations")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "linear-eq" {
		t.Errorf("untouched tie: got %q, want linear-eq", n.ID)
	}

	// Lowest mastery wins.
	setMastery(t, g, "linear-eq", 50, t0)
	setMastery(t, g, "quadratic-eq", 30, t0)
	n, _ = ChooseLeaf(g, "equations")
	if n.ID != "quadratic-eq" {
		t.Errorf("lowest mastery: got %q, want quadratic-eq", n.ID)
	}

	// Equal mastery: most recently attempted wins.
	setMastery(t, g, "linear-eq", 30, t0.Add(time.Hour))
	n, _ = ChooseLeaf(g, "equations")
	if n.ID != "linear-eq" {
		t.Errorf("recency tie: got %q, want linear-eq", n.ID)
	}
}

func TestChooseLeaf_SubjectScope(t *testing.T) {
	g := newGraph(t)
	t0 := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"linear-eq", "quadratic-eq", "linear-func", "quadratic-func", "pythagoras", "triangle-area"} {
		setMastery(t, g, id, 60, t0)
	}
	n, err := ChooseLeaf(g, "")
	if err != nil {
		t.Fatal(err)
	}
	if n.ID != "sin-cos" {
		t.Errorf("ChooseLeaf(all) = %q, want sin-cos", n.ID)
	}
}

func TestChooseLeaf_UnknownNode(t *testing.T) {
	g := newGraph(t)
	if _, err := ChooseLeaf(g, "calculus"); !errors.Is(err, knowledge.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSelector_NextFollowsSession(t *testing.T) {
	g := newGraph(t)
	sel := New(policyWith(StrategyAggressive))

	task, err := sel.Next(g, "pythagoras")
	if err != nil {
		t.Fatal(err)
	}
	if task.Difficulty != 3 || task.Phase != PhaseProbing || task.DifficultyLabel != "medium" {
		t.Errorf("initial task = %+v", task)
	}

	sess, trs := sel.Observe("pythagoras", Observation{Correct: true, Difficulty: 3, MasteryBefore: 0, MasteryAfter: 20})
	if len(trs) != 1 || sess.Difficulty != 4 {
		t.Fatalf("after observe: session %+v, transitions %+v", sess, trs)
	}

	task, _ = sel.Next(g, "pythagoras")
	if task.Difficulty != 4 || task.DifficultyLabel != "hard" || task.Phase != PhaseAdapting {
		t.Errorf("next task = %+v", task)
	}
}

func TestSelector_SessionsRoundTrip(t *testing.T) {
	sel := New(DefaultPolicy())
	sel.Observe("b", Observation{Correct: true, Difficulty: 3, MasteryAfter: 20})
	sel.Observe("a", Observation{Correct: false, Difficulty: 3})

	saved := sel.Sessions()
	if len(saved) != 2 || saved[0].NodeID != "a" || saved[1].NodeID != "b" {
		t.Fatalf("Sessions() = %+v", saved)
	}

	other := New(DefaultPolicy())
	other.Restore(saved)
	if got := other.Session("a"); got != saved[0] {
		t.Errorf("restored session = %+v, want %+v", got, saved[0])
	}

	other.Reset()
	if got := other.Session("a"); got.Phase != PhaseProbing || got.Attempts != 0 {
		t.Errorf("after Reset: %+v", got)
	}
}
