package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/selector"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) Close(context.Context) error {
	r.closed = true
	return nil
}

func sampleEvent() Event {
	return Event{
		LearnerID:     "ana",
		NodeID:        "linear-eq",
		Correct:       true,
		MasteryBefore: 0,
		MasteryAfter:  20,
		Phase:         selector.PhaseAdapting,
		Path: []NodeMastery{
			{ID: "math", Level: knowledge.LevelSubject, Mastery: 3, Status: knowledge.StatusNeedsWork},
			{ID: "algebra", Level: knowledge.LevelSection, Mastery: 5, Status: knowledge.StatusNeedsWork},
			{ID: "equations", Level: knowledge.LevelTopic, Mastery: 10, Status: knowledge.StatusNeedsWork},
			{ID: "linear-eq", Level: knowledge.LevelElement, Mastery: 20, Status: knowledge.StatusNeedsWork},
		},
		At: time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC),
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("broker down")}
	p := Multi(a, nil, b)

	err := p.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMulti_Degenerate(t *testing.T) {
	assert.Equal(t, Nop(), Multi())
	assert.Equal(t, Nop(), Multi(nil, nil))

	r := &recorder{}
	assert.Same(t, r, Multi(r).(*recorder))
	assert.NoError(t, Nop().Publish(context.Background(), sampleEvent()))
}

func TestPathFrom(t *testing.T) {
	nodes := []knowledge.Node{
		{ID: "math", Name: "Mathematics", Level: knowledge.LevelSubject, Mastery: 40, Status: knowledge.StatusLearning},
		{ID: "pythagoras", Name: "Pythagorean theorem", Level: knowledge.LevelElement, Mastery: 90, Status: knowledge.StatusMastered},
	}
	path := PathFrom(nodes)
	require.Len(t, path, 2)
	assert.Equal(t, "Mathematics", path[0].Name)
	assert.Equal(t, knowledge.StatusMastered, path[1].Status)
}

func TestMirrorRows_LinksParents(t *testing.T) {
	rows := mirrorRows(sampleEvent())
	require.Len(t, rows, 4)

	assert.Equal(t, "math", rows[0]["node_id"])
	assert.Equal(t, "", rows[0]["parent_id"])
	assert.Equal(t, "math", rows[1]["parent_id"])
	assert.Equal(t, "equations", rows[3]["parent_id"])
	assert.Equal(t, int64(20), rows[3]["mastery"])
	assert.Equal(t, "element", rows[3]["level"])
}

func TestMirrorParams_CarrySequenceGuard(t *testing.T) {
	ev := sampleEvent()
	ev.Sequence = 42

	params := mirrorParams(ev)
	assert.Equal(t, int64(42), params["sequence"])
	assert.Equal(t, "linear-eq", params["leaf_id"])
	assert.Equal(t, "2025-11-29T12:00:00Z", params["updated_at"])
	assert.Len(t, params["rows"], 4)

	// Older events must not overwrite a relationship written by a newer one.
	assert.Contains(t, mirrorCypher, "WHERE coalesce(s.sequence, -1) < $sequence")
	assert.Contains(t, mirrorCypher, "s.sequence = $sequence")
}

func TestNeo4jMirror_DisabledWithoutURI(t *testing.T) {
	m, err := NewNeo4jMirror(context.Background(), Neo4jConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// A nil mirror is safe to use.
	assert.NoError(t, m.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, m.Close(context.Background()))
}

func TestRedisPublisher_UnreachableReturnsError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	p := NewRedisPublisher(rdb, "")
	assert.Equal(t, DefaultRedisChannel, p.Channel())

	err := p.Publish(context.Background(), sampleEvent())
	assert.Error(t, err)
	assert.NoError(t, p.Close(context.Background()))
}

func TestDialRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := DialRedis(ctx, "127.0.0.1:1", nil)
	assert.Error(t, err)
}
