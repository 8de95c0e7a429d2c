package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/adaptd/internal/attemptlog"
	"github.com/abhisek/adaptd/internal/diagnosis"
)

// AttemptRepo is the SQLite attempt log. It implements attemptlog.Log.
type AttemptRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

var _ attemptlog.Log = (*AttemptRepo)(nil)

var attemptColumns = []string{
	"id", "sequence", "learner_id", "node_id", "timestamp", "correct",
	"time_spent_seconds", "difficulty", "error_type", "classifier",
}

func (r *AttemptRepo) Append(ctx context.Context, a *attemptlog.Attempt) error {
	if err := attemptlog.Prepare(a); err != nil {
		return err
	}
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert("attempts").
		Columns(attemptColumns...).
		Values(a.ID.String(), seqNum, a.LearnerID, a.NodeID, formatTime(a.Timestamp), a.Correct,
			a.TimeSpentSeconds, a.Difficulty, string(a.ErrorType), a.Classifier).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	a.Sequence = seqNum
	return nil
}

func (r *AttemptRepo) Since(ctx context.Context, learnerID string, after int64) ([]attemptlog.Attempt, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(attemptColumns...).
		From(b.Table("attempts")).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.GT("sequence", after),
		)).
		OrderBy("sequence").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []attemptlog.Attempt
	for rows.Next() {
		var (
			a             attemptlog.Attempt
			id, ts, etype string
			err           error
		)
		if err = rows.Scan(&id, &a.Sequence, &a.LearnerID, &a.NodeID, &ts, &a.Correct,
			&a.TimeSpentSeconds, &a.Difficulty, &etype, &a.Classifier); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse attempt id %q: %w", id, err)
		}
		if a.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		a.ErrorType = diagnosis.ErrorType(etype)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AttemptRepo) Learners(ctx context.Context) ([]string, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("learner_id").
		Distinct().
		From(b.Table("attempts")).
		OrderBy("learner_id").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
