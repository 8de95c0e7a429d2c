package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/adaptd/internal/attemptlog"
	"github.com/abhisek/adaptd/internal/diagnosis"
	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/llm"
	"github.com/abhisek/adaptd/internal/selector"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"attempts", "snapshots", "phase_transitions", "llm_request_events", "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenTwiceIsIdempotent(t *testing.T) {
	path := t.TempDir() + "/adaptd.db"
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.AttemptRepo().Append(context.Background(), &attemptlog.Attempt{
		LearnerID: "ana", NodeID: "linear-eq", Correct: true, Difficulty: 3,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	var mode string
	if err := s2.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	got, err := s2.AttemptRepo().Since(context.Background(), "ana", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("attempts after reopen = %d, want 1", len(got))
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestAttemptRepo_AppendAndSince(t *testing.T) {
	s := openTestStore(t)
	repo := s.AttemptRepo()
	ctx := context.Background()
	at := time.Date(2025, 11, 29, 12, 30, 0, 123456789, time.UTC)

	in := []*attemptlog.Attempt{
		{LearnerID: "ana", NodeID: "linear-eq", Timestamp: at, Correct: true, Difficulty: 3, TimeSpentSeconds: 12.5},
		{LearnerID: "ben", NodeID: "pythagoras", Timestamp: at, Correct: true, Difficulty: 2},
		{LearnerID: "ana", NodeID: "linear-eq", Timestamp: at.Add(time.Minute), Difficulty: 4,
			ErrorType: diagnosis.ErrorConceptual, Classifier: "rules/default"},
	}
	for i, a := range in {
		if err := repo.Append(ctx, a); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if in[2].Sequence <= in[0].Sequence {
		t.Errorf("sequence not increasing: %d then %d", in[0].Sequence, in[2].Sequence)
	}

	got, err := repo.Since(ctx, "ana", 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("since returned %d attempts, want 2", len(got))
	}
	first, second := got[0], got[1]
	if first.ID != in[0].ID || !first.Timestamp.Equal(at) || first.TimeSpentSeconds != 12.5 || !first.Correct {
		t.Errorf("first attempt = %+v", first)
	}
	if second.Correct || second.ErrorType != diagnosis.ErrorConceptual || second.Classifier != "rules/default" || second.Difficulty != 4 {
		t.Errorf("second attempt = %+v", second)
	}

	tail, err := repo.Since(ctx, "ana", first.Sequence)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 1 || tail[0].ID != second.ID {
		t.Errorf("since(%d) = %+v", first.Sequence, tail)
	}

	learners, err := repo.Learners(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(learners, ",") != "ana,ben" {
		t.Errorf("learners = %v", learners)
	}
}

func TestAttemptRepo_RejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	err := s.AttemptRepo().Append(context.Background(), &attemptlog.Attempt{LearnerID: "ana", NodeID: "x", Difficulty: 3})
	if err == nil {
		t.Fatal("expected error for incorrect attempt without error type")
	}
	if n := countRows(t, s, "attempts"); n != 0 {
		t.Errorf("attempts = %d, want 0", n)
	}
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx, "ana")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	now := time.Now().UTC().Truncate(time.Second)
	in := &Snapshot{
		LearnerID: "ana",
		Sequence:  42,
		Timestamp: now,
		Data: SnapshotData{
			Nodes:    []knowledge.NodeState{{ID: "linear-eq", Mastery: 64, AttemptCount: 3, ErrorCount: 1, Version: 3, LastAttemptAt: &now}},
			Sessions: []selector.Session{{NodeID: "linear-eq", Phase: selector.PhaseAdapting, Difficulty: 4, Attempts: 3}},
		},
	}
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if in.ID == 0 {
		t.Error("Save did not set ID")
	}

	snap, err = repo.Latest(ctx, "ana")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snap.Sequence != 42 || !snap.Timestamp.Equal(now) {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Data.Version != SnapshotDataVersion {
		t.Errorf("data.version = %d, want %d", snap.Data.Version, SnapshotDataVersion)
	}
	if len(snap.Data.Nodes) != 1 || snap.Data.Nodes[0].Mastery != 64 {
		t.Errorf("nodes = %+v", snap.Data.Nodes)
	}
	if len(snap.Data.Sessions) != 1 || snap.Data.Sessions[0].Difficulty != 4 {
		t.Errorf("sessions = %+v", snap.Data.Sessions)
	}

	other, err := repo.Latest(ctx, "ben")
	if err != nil || other != nil {
		t.Errorf("latest for another learner = %+v, %v", other, err)
	}
}

func TestSnapshotPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 7; i++ {
		for _, learner := range []string{"ana", "ben"} {
			err := repo.Save(ctx, &Snapshot{
				LearnerID: learner,
				Sequence:  int64(i + 1),
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
		}
	}

	if err := repo.Prune(ctx, "ana", 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n := countRows(t, s, "snapshots WHERE learner_id = 'ana'"); n != 5 {
		t.Errorf("remaining ana snapshots = %d, want 5", n)
	}
	if n := countRows(t, s, "snapshots WHERE learner_id = 'ben'"); n != 7 {
		t.Errorf("ben snapshots = %d, want 7", n)
	}

	snap, err := repo.Latest(ctx, "ana")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != 7 {
		t.Errorf("latest sequence = %d, want 7", snap.Sequence)
	}

	// Fewer than keep is a no-op.
	if err := repo.Prune(ctx, "ana", 10); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n := countRows(t, s, "snapshots WHERE learner_id = 'ana'"); n != 5 {
		t.Errorf("remaining ana snapshots = %d, want 5", n)
	}

	if err := repo.Prune(ctx, "ana", 0); err == nil {
		t.Error("prune with keep=0 should fail")
	}
}

func TestEventRepo_LLMRequests(t *testing.T) {
	s := openTestStore(t)
	events := s.EventRepo()
	ctx := context.Background()

	for _, ok := range []bool{true, false} {
		err := events.AppendLLMRequest(ctx, llm.RequestEvent{
			Provider: "openai", Model: "gpt-4o-mini", Purpose: "error-classification",
			InputTokens: 100, OutputTokens: 20, CostUSD: 0.25, LatencyMs: 300, Success: ok,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	calls, cost, err := events.LLMUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if calls != 2 || cost != 0.5 {
		t.Errorf("usage = %d calls, $%v; want 2, 0.5", calls, cost)
	}
}

func TestEventRepo_Transitions(t *testing.T) {
	s := openTestStore(t)
	events := s.EventRepo()
	ctx := context.Background()
	at := time.Date(2025, 11, 29, 9, 0, 0, 0, time.UTC)

	trs := []selector.Transition{
		{NodeID: "linear-eq", From: selector.PhaseProbing, To: selector.PhaseAdapting, Trigger: selector.TriggerFirstAttempt},
		{NodeID: "linear-eq", From: selector.PhaseAdapting, To: selector.PhaseConsolidating, Trigger: selector.TriggerTargetReached},
	}
	for _, tr := range trs {
		if err := events.AppendTransition(ctx, "ana", tr, at); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = events.AppendTransition(ctx, "ben", trs[0], at)

	got, err := events.Transitions(ctx, "ana")
	if err != nil {
		t.Fatalf("transitions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transitions, want 2", len(got))
	}
	if got[1].Transition != trs[1] || got[1].LearnerID != "ana" || !got[1].Timestamp.Equal(at) {
		t.Errorf("second transition = %+v", got[1])
	}
	if got[0].Sequence >= got[1].Sequence {
		t.Errorf("transitions out of order: %d, %d", got[0].Sequence, got[1].Sequence)
	}
}
