package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/adaptd/internal/attemptlog"
	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/selector"
	"github.com/abhisek/adaptd/internal/store"
)

// ReplayReport describes one rebuild of a learner's state.
type ReplayReport struct {
	LearnerID    string   `json:"learner_id"`
	FromSequence int64    `json:"from_sequence"` // sequence of the snapshot used, 0 if none
	LastSequence int64    `json:"last_sequence"`
	Applied      int      `json:"applied"`
	Skipped      []string `json:"skipped,omitempty"` // node IDs no longer in the curriculum
}

// learnerState is a fully rebuilt graph and session set.
type learnerState struct {
	graph   *knowledge.Graph
	sel     *selector.Selector
	lastSeq int64
	pending int // attempts applied on top of the snapshot
}

func (l *learner) install(st *learnerState) {
	l.graph = st.graph
	l.sel = st.sel
	l.mu.Lock()
	l.lastSeq = st.lastSeq
	l.sinceSnapshot = st.pending
	l.mu.Unlock()
}

// rebuild restores the learner from the latest snapshot and re-applies
// every later attempt with its recorded error type. It never calls the
// classifier.
func (e *Engine) rebuild(ctx context.Context, learnerID string) (*learnerState, ReplayReport, error) {
	st := &learnerState{
		graph: e.template.Clone(),
		sel:   selector.New(e.cfg.Policy),
	}
	report := ReplayReport{LearnerID: learnerID}

	if e.snapshots != nil {
		snap, err := e.snapshots.Latest(ctx, learnerID)
		if err != nil {
			return nil, report, fmt.Errorf("load snapshot: %w", err)
		}
		if snap != nil {
			if skipped := st.graph.Restore(snap.Data.Nodes); len(skipped) > 0 {
				e.logger.Warn("snapshot references unknown nodes", "learner_id", learnerID, "nodes", skipped)
			}
			st.sel.Restore(snap.Data.Sessions)
			st.lastSeq = snap.Sequence
			report.FromSequence = snap.Sequence
		}
	}

	attempts, err := e.log.Since(ctx, learnerID, st.lastSeq)
	if err != nil {
		return nil, report, fmt.Errorf("read attempts: %w", err)
	}
	for i := range attempts {
		a := &attempts[i]
		if err := e.replayOne(st, a); err != nil {
			if !errors.Is(err, knowledge.ErrInvalidNode) {
				return nil, report, fmt.Errorf("replay attempt %d: %w", a.Sequence, err)
			}
			report.Skipped = append(report.Skipped, a.NodeID)
		} else {
			report.Applied++
		}
		if a.Sequence > st.lastSeq {
			st.lastSeq = a.Sequence
		}
	}
	st.pending = report.Applied
	report.LastSequence = st.lastSeq
	return st, report, nil
}

func (e *Engine) replayOne(st *learnerState, a *attemptlog.Attempt) error {
	upd, err := e.estimator.Apply(st.graph, a.NodeID, outcomeOf(a), a.Timestamp)
	if err != nil {
		return err
	}
	st.sel.Observe(a.NodeID, selector.Observation{
		Correct:       a.Correct,
		Difficulty:    a.Difficulty,
		MasteryBefore: upd.Before.Mastery,
		MasteryAfter:  upd.After.Mastery,
	})
	return nil
}

// Replay rebuilds the learner's mastery and sessions from the latest
// snapshot plus the attempts logged after it, and swaps them in.
func (e *Engine) Replay(ctx context.Context, learnerID string) (ReplayReport, error) {
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return ReplayReport{LearnerID: learnerID}, err
	}

	l.state.Lock()
	defer l.state.Unlock()

	st, report, err := e.rebuild(ctx, learnerID)
	if err != nil {
		return report, err
	}
	l.install(st)

	e.logger.Info("learner replayed", "learner_id", learnerID,
		"from_sequence", report.FromSequence, "applied", report.Applied, "skipped", len(report.Skipped))
	return report, nil
}

// ReplayAll replays every learner that has attempts in the log.
func (e *Engine) ReplayAll(ctx context.Context) ([]ReplayReport, error) {
	ids, err := e.log.Learners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	reports := make([]ReplayReport, 0, len(ids))
	for _, id := range ids {
		r, err := e.Replay(ctx, id)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// SaveSnapshot persists the learner's current leaf states and sessions.
// Attempts are blocked while the state is captured.
func (e *Engine) SaveSnapshot(ctx context.Context, learnerID string) (*store.Snapshot, error) {
	if e.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	l.state.Lock()
	defer l.state.Unlock()

	l.mu.Lock()
	seq := l.lastSeq
	l.mu.Unlock()

	snap := &store.Snapshot{
		LearnerID: learnerID,
		Sequence:  seq,
		Timestamp: e.now(),
		Data: store.SnapshotData{
			Version:  store.SnapshotDataVersion,
			Nodes:    l.graph.States(),
			Sessions: l.sel.Sessions(),
		},
	}
	if err := e.snapshots.Save(ctx, snap); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.sinceSnapshot = 0
	l.mu.Unlock()

	if err := e.snapshots.Prune(ctx, learnerID, e.cfg.SnapshotKeep); err != nil {
		e.logger.Warn("prune snapshots failed", "learner_id", learnerID, "error", err)
	}
	e.logger.Debug("snapshot saved", "learner_id", learnerID, "sequence", seq)
	return snap, nil
}
