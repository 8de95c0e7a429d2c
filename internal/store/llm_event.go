package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptd/internal/llm"
	"github.com/abhisek/adaptd/internal/selector"
)

// eventRepo implements EventRepo backed by the global sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, ev llm.RequestEvent) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert("llm_request_events").
		Columns("sequence", "timestamp", "provider", "model", "purpose",
			"input_tokens", "output_tokens", "cost_usd", "latency_ms",
			"success", "error_message", "request_body", "response_body").
		Values(seqNum, formatTime(time.Now()), ev.Provider, ev.Model, ev.Purpose,
			ev.InputTokens, ev.OutputTokens, ev.CostUSD, ev.LatencyMs,
			ev.Success, ev.ErrorMessage, ev.RequestBody, ev.ResponseBody).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) LLMUsage(ctx context.Context) (int, float64, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(entsql.Count("*"), "COALESCE(SUM(`cost_usd`), 0)").
		From(b.Table("llm_request_events")).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return 0, 0, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	var (
		calls int
		cost  float64
	)
	if rows.Next() {
		if err := rows.Scan(&calls, &cost); err != nil {
			return 0, 0, fmt.Errorf("scan LLM usage: %w", err)
		}
	}
	return calls, cost, rows.Err()
}

func (r *eventRepo) AppendTransition(ctx context.Context, learnerID string, tr selector.Transition, at time.Time) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert("phase_transitions").
		Columns("sequence", "learner_id", "node_id", "from_phase", "to_phase", "trigger_name", "timestamp").
		Values(seqNum, learnerID, tr.NodeID, string(tr.From), string(tr.To), tr.Trigger, formatTime(at)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save transition event: %w", err)
	}
	return nil
}

func (r *eventRepo) Transitions(ctx context.Context, learnerID string) ([]TransitionEvent, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("sequence", "node_id", "from_phase", "to_phase", "trigger_name", "timestamp").
		From(b.Table("phase_transitions")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy("sequence").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionEvent
	for rows.Next() {
		var (
			ev       TransitionEvent
			from, to string
			ts       string
		)
		if err := rows.Scan(&ev.Sequence, &ev.NodeID, &from, &to, &ev.Trigger, &ts); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		ev.LearnerID = learnerID
		ev.From = selector.Phase(from)
		ev.To = selector.Phase(to)
		ev.Timestamp = t
		out = append(out, ev)
	}
	return out, rows.Err()
}
