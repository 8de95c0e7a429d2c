package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abhisek/adaptd/internal/logger"
)

// Neo4jConfig locates the mirror database.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// Neo4jMirror keeps a (:Learner)-[:MASTERY]->(:KnowledgeNode) graph in
// step with every recorded attempt.
type Neo4jMirror struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
}

// NewNeo4jMirror connects and verifies connectivity. An empty URI disables
// the mirror and returns nil, nil.
func NewNeo4jMirror(ctx context.Context, cfg Neo4jConfig, log *logger.Logger) (*Neo4jMirror, error) {
	if cfg.URI == "" {
		return nil, nil
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	m := &Neo4jMirror{driver: driver, database: cfg.Database, log: log.With("sink", "neo4j")}
	m.ensureSchema(ctx)
	return m, nil
}

func (m *Neo4jMirror) ensureSchema(ctx context.Context) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.database,
	})
	defer session.Close(ctx)

	for _, stmt := range []string{
		`CREATE CONSTRAINT learner_id_unique IF NOT EXISTS FOR (l:Learner) REQUIRE l.id IS UNIQUE`,
		`CREATE CONSTRAINT knowledge_node_id_unique IF NOT EXISTS FOR (k:KnowledgeNode) REQUIRE k.id IS UNIQUE`,
	} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			m.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

// mirrorRows flattens the event path into UNWIND parameters. Each row
// links a node to its parent so the taxonomy is mirrored as well.
func mirrorRows(ev Event) []map[string]any {
	rows := make([]map[string]any, 0, len(ev.Path))
	parent := ""
	for _, n := range ev.Path {
		rows = append(rows, map[string]any{
			"node_id":   n.ID,
			"name":      n.Name,
			"level":     string(n.Level),
			"parent_id": parent,
			"mastery":   int64(n.Mastery),
			"status":    string(n.Status),
		})
		parent = n.ID
	}
	return rows
}

// mirrorCypher upserts the path. A relationship already written by a later
// sequence is left alone, so events may arrive out of order.
const mirrorCypher = `
MERGE (l:Learner {id: $learner_id})
WITH l
UNWIND $rows AS r
MERGE (k:KnowledgeNode {id: r.node_id})
SET k.name = r.name, k.level = r.level
MERGE (l)-[s:MASTERY]->(k)
WITH k, r, s
WHERE coalesce(s.sequence, -1) < $sequence
SET s.mastery = r.mastery,
    s.status = r.status,
    s.sequence = $sequence,
    s.updated_at = $updated_at,
    s.phase = CASE WHEN r.node_id = $leaf_id THEN $phase ELSE s.phase END
WITH k, r
WHERE r.parent_id <> ''
MERGE (p:KnowledgeNode {id: r.parent_id})
MERGE (p)-[:HAS_CHILD]->(k)
`

func mirrorParams(ev Event) map[string]any {
	return map[string]any{
		"learner_id": ev.LearnerID,
		"sequence":   ev.Sequence,
		"updated_at": ev.At.UTC().Format(time.RFC3339Nano),
		"phase":      string(ev.Phase),
		"leaf_id":    ev.NodeID,
		"rows":       mirrorRows(ev),
	}
}

func (m *Neo4jMirror) Publish(ctx context.Context, ev Event) error {
	if m == nil || m.driver == nil {
		return nil
	}
	if len(ev.Path) == 0 {
		return nil
	}

	session := m.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.database,
	})
	defer session.Close(ctx)

	params := mirrorParams(ev)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, mirrorCypher, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j mirror: %w", err)
	}
	return nil
}

func (m *Neo4jMirror) Close(ctx context.Context) error {
	if m == nil || m.driver == nil {
		return nil
	}
	err := m.driver.Close(ctx)
	m.driver = nil
	return err
}
