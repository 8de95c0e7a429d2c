package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// snapshotRepo implements SnapshotRepo on the snapshots table.
type snapshotRepo struct {
	drv *entsql.Driver
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Data.Version == 0 {
		snap.Data.Version = SnapshotDataVersion
	}
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert("snapshots").
		Columns("learner_id", "sequence", "timestamp", "data").
		Values(snap.LearnerID, snap.Sequence, formatTime(snap.Timestamp), string(data)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, learnerID string) (*Snapshot, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("id", "sequence", "timestamp", "data").
		From(b.Table("snapshots")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("id")).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		snap     = Snapshot{LearnerID: learnerID}
		ts, data string
	)
	if err := rows.Scan(&snap.ID, &snap.Sequence, &ts, &data); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	t, err := parseTime(ts)
	if err != nil {
		return nil, err
	}
	snap.Timestamp = t
	if err := json.Unmarshal([]byte(data), &snap.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return &snap, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, learnerID string, keep int) error {
	if keep < 1 {
		return fmt.Errorf("prune snapshots: keep must be >= 1, got %d", keep)
	}
	b := entsql.Dialect(dialect.SQLite)

	// Find the oldest snapshot that survives.
	query, args := b.Select("id").
		From(b.Table("snapshots")).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("id")).
		Offset(keep - 1).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return fmt.Errorf("query snapshots for prune: %w", err)
	}
	var threshold int
	found := rows.Next()
	if found {
		if err := rows.Scan(&threshold); err != nil {
			rows.Close()
			return fmt.Errorf("scan snapshot id: %w", err)
		}
	}
	rows.Close()
	if !found {
		return nil // fewer than keep snapshots exist
	}

	query, args = b.Delete("snapshots").
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.LT("id", threshold),
		)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
