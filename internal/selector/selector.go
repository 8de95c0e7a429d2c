package selector

import (
	"sort"
	"sync"

	"github.com/abhisek/adaptd/internal/knowledge"
)

// Task is the selector's answer to "what next".
type Task struct {
	TopicID         string `json:"topic_id"`
	Difficulty      int    `json:"difficulty"`
	DifficultyLabel string `json:"difficulty_label"`
	Phase           Phase  `json:"phase"`
}

// Selector holds the sessions of one learner.
type Selector struct {
	policy Policy

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a selector with no sessions.
func New(policy Policy) *Selector {
	return &Selector{
		policy:   policy,
		sessions: make(map[string]*Session),
	}
}

// Policy returns the policy in use.
func (s *Selector) Policy() Policy { return s.policy }

// Session returns a copy of the session for nodeID. Unknown nodes report a
// fresh probing session.
func (s *Selector) Session(nodeID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[nodeID]; ok {
		return *sess
	}
	return *NewSession(nodeID)
}

// Observe records an attempt on nodeID and returns the updated session
// along with any transitions.
func (s *Selector) Observe(nodeID string, o Observation) (Session, []Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[nodeID]
	if !ok {
		sess = NewSession(nodeID)
		s.sessions[nodeID] = sess
	}
	trs := sess.Observe(s.policy, o)
	return *sess, trs
}

// Next picks the leaf to practise under nodeID and the difficulty to serve.
func (s *Selector) Next(g *knowledge.Graph, nodeID string) (Task, error) {
	leaf, err := ChooseLeaf(g, nodeID)
	if err != nil {
		return Task{}, err
	}
	sess := s.Session(leaf.ID)
	d := sess.NextDifficulty()
	return Task{
		TopicID:         leaf.ID,
		Difficulty:      d,
		DifficultyLabel: DifficultyLabel(d),
		Phase:           sess.Phase,
	}, nil
}

// Sessions returns copies of all sessions ordered by node ID.
func (s *Selector) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Restore replaces all sessions with the given ones.
func (s *Selector) Restore(sessions []Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*Session, len(sessions))
	for i := range sessions {
		sess := sessions[i]
		if sess.Phase == "" {
			sess.Phase = PhaseProbing
		}
		if sess.Difficulty == 0 {
			sess.Difficulty = DefaultDifficulty
		}
		s.sessions[sess.NodeID] = &sess
	}
}

// Reset drops all sessions.
func (s *Selector) Reset() {
	s.Restore(nil)
}

// ChooseLeaf returns nodeID itself when it is an element. Otherwise it
// returns the weakest leaf under it: lowest mastery, then the most recently
// attempted, then the lowest ID.
func ChooseLeaf(g *knowledge.Graph, nodeID string) (knowledge.Node, error) {
	leaves, err := g.Leaves(nodeID)
	if err != nil {
		return knowledge.Node{}, err
	}
	if len(leaves) == 0 {
		return knowledge.Node{}, knowledge.ErrInvalidNode
	}

	best := leaves[0]
	for _, n := range leaves[1:] {
		if weaker(n, best) {
			best = n
		}
	}
	return best, nil
}

func weaker(a, b knowledge.Node) bool {
	if a.Mastery != b.Mastery {
		return a.Mastery < b.Mastery
	}
	switch {
	case a.LastAttemptAt != nil && b.LastAttemptAt == nil:
		return true
	case a.LastAttemptAt == nil && b.LastAttemptAt != nil:
		return false
	case a.LastAttemptAt != nil && !a.LastAttemptAt.Equal(*b.LastAttemptAt):
		return a.LastAttemptAt.After(*b.LastAttemptAt)
	}
	return a.ID < b.ID
}
