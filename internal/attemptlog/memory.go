package attemptlog

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Log. Sequences start at 1.
type Memory struct {
	mu        sync.RWMutex
	seq       int64
	byLearner map[string][]Attempt
}

// NewMemory creates an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{byLearner: make(map[string][]Attempt)}
}

func (m *Memory) Append(_ context.Context, a *Attempt) error {
	if err := Prepare(a); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.Sequence = m.seq
	m.byLearner[a.LearnerID] = append(m.byLearner[a.LearnerID], *a)
	return nil
}

func (m *Memory) Since(_ context.Context, learnerID string, after int64) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.byLearner[learnerID]
	i := sort.Search(len(all), func(i int) bool { return all[i].Sequence > after })
	out := make([]Attempt, len(all)-i)
	copy(out, all[i:])
	return out, nil
}

func (m *Memory) Learners(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.byLearner))
	for id := range m.byLearner {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Len returns the total number of attempts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, as := range m.byLearner {
		n += len(as)
	}
	return n
}
