package knowledge

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// entry is the mutable in-graph representation of a node.
type entry struct {
	id       string
	name     string
	level    Level
	weight   float64
	parent   *entry
	children []*entry

	mastery      int
	errorCount   int
	attemptCount int
	lastAttempt  time.Time
	version      int64
}

// Graph is a learner's copy of the curriculum taxonomy with mastery state.
// All mutation goes through Apply/UpdateMastery/Restore, which hold the
// write lock across the whole leaf-to-root chain so readers never observe a
// partially recomputed ancestor.
type Graph struct {
	mu    sync.RWMutex
	root  *entry
	byID  map[string]*entry
	order []*entry // pre-order
}

// Build validates the outline and constructs a graph with zero mastery.
func Build(outline Outline) (*Graph, error) {
	if err := validateOutline(outline); err != nil {
		return nil, err
	}

	g := &Graph{byID: make(map[string]*entry)}
	g.root = g.add(outline, nil)
	return g, nil
}

func (g *Graph) add(outline Outline, parent *entry) *entry {
	w := outline.Weight
	if w == 0 {
		w = 1
	}
	e := &entry{
		id:     outline.ID,
		name:   outline.Name,
		level:  outline.Level,
		weight: w,
		parent: parent,
	}
	g.byID[e.id] = e
	g.order = append(g.order, e)
	for _, c := range outline.Children {
		e.children = append(e.children, g.add(c, e))
	}
	return e
}

// Clone returns an independent deep copy, including mastery state.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := &Graph{byID: make(map[string]*entry, len(g.byID))}
	c.root = c.cloneEntry(g.root, nil)
	return c
}

func (g *Graph) cloneEntry(src *entry, parent *entry) *entry {
	e := *src
	e.parent = parent
	e.children = nil
	g.byID[e.id] = &e
	g.order = append(g.order, &e)
	for _, ch := range src.children {
		e.children = append(e.children, g.cloneEntry(ch, &e))
	}
	return &e
}

// RootID returns the ID of the subject-level root.
func (g *Graph) RootID() string {
	return g.root.id
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.byID[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return e.toNode(), nil
}

// Leaf returns the node with the given ID, or ErrInvalidNode if it is
// missing or not an element.
func (g *Graph) Leaf(id string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, err := g.leafLocked(id)
	if err != nil {
		return Node{}, err
	}
	return e.toNode(), nil
}

func (g *Graph) leafLocked(id string) (*entry, error) {
	e, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q does not exist", ErrInvalidNode, id)
	}
	if e.level != LevelElement {
		return nil, fmt.Errorf("%w: %q is a %s, not an element", ErrInvalidNode, id, e.level)
	}
	return e, nil
}

// Path returns the nodes from the root down to id, inclusive.
func (g *Graph) Path(id string) ([]Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	var path []Node
	for ; e != nil; e = e.parent {
		path = append(path, e.toNode())
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Ancestors returns the parents of id from the root down, excluding id.
func (g *Graph) Ancestors(id string) ([]Node, error) {
	path, err := g.Path(id)
	if err != nil {
		return nil, err
	}
	return path[:len(path)-1], nil
}

// UpdateMastery sets a leaf's mastery and recomputes every ancestor.
// expectedVersion must match the leaf's current version.
func (g *Graph) UpdateMastery(id string, value int, expectedVersion int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.leafLocked(id)
	if err != nil {
		return err
	}
	if e.version != expectedVersion {
		return fmt.Errorf("%w: node %q at version %d, update computed from %d",
			ErrConcurrentUpdate, e.id, e.version, expectedVersion)
	}
	e.mastery = clampMastery(value)
	e.version++
	g.propagate(e.parent)
	return nil
}

// Apply writes an estimator result: mastery, attempt aggregates and
// version, followed by the ancestor recomputation, as one transaction.
// It returns the updated leaf.
func (g *Graph) Apply(u Update) (Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, err := g.leafLocked(u.NodeID)
	if err != nil {
		return Node{}, err
	}
	if e.version != u.ExpectedVersion {
		return Node{}, fmt.Errorf("%w: node %q at version %d, update computed from %d",
			ErrConcurrentUpdate, e.id, e.version, u.ExpectedVersion)
	}

	e.mastery = clampMastery(u.Mastery)
	e.version++
	e.attemptCount++
	if !u.Correct {
		e.errorCount++
	}
	if u.At.After(e.lastAttempt) {
		e.lastAttempt = u.At
	}
	g.propagate(e.parent)
	return e.toNode(), nil
}

// propagate recomputes aggregates from e up to the root.
// Caller must hold the write lock.
func (g *Graph) propagate(e *entry) {
	for ; e != nil; e = e.parent {
		e.recompute()
	}
}

// recompute sets a parent's aggregates from its current children.
func (e *entry) recompute() {
	var sum, weights float64
	e.errorCount = 0
	e.attemptCount = 0
	e.lastAttempt = time.Time{}
	for _, c := range e.children {
		sum += c.weight * float64(c.mastery)
		weights += c.weight
		e.errorCount += c.errorCount
		e.attemptCount += c.attemptCount
		if c.lastAttempt.After(e.lastAttempt) {
			e.lastAttempt = c.lastAttempt
		}
	}
	if weights > 0 {
		e.mastery = clampMastery(RoundHalfUp(sum / weights))
	}
}

// Aggregate returns the mastery a parent must have given its children's
// current values. Exposed so callers can check the aggregate invariant.
func (g *Graph) Aggregate(id string) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if len(e.children) == 0 {
		return e.mastery, nil
	}
	var sum, weights float64
	for _, c := range e.children {
		sum += c.weight * float64(c.mastery)
		weights += c.weight
	}
	return clampMastery(RoundHalfUp(sum / weights)), nil
}

// Leaves returns the element nodes under scope in pre-order.
// An empty scope means the whole graph.
func (g *Graph) Leaves(scope string) ([]Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start, err := g.scopeLocked(scope)
	if err != nil {
		return nil, err
	}
	var out []Node
	walk(start, func(e *entry) {
		if e.level == LevelElement {
			out = append(out, e.toNode())
		}
	})
	return out, nil
}

// WeakNodes returns every node under scope (inclusive) whose mastery is
// below threshold, weakest first. Ties go to the node with more errors,
// then to the lexicographically lowest ID.
func (g *Graph) WeakNodes(threshold int, scope string) ([]Node, error) {
	return g.weak(threshold, scope, false)
}

// WeakLeaves is WeakNodes restricted to element nodes.
func (g *Graph) WeakLeaves(threshold int, scope string) ([]Node, error) {
	return g.weak(threshold, scope, true)
}

func (g *Graph) weak(threshold int, scope string, leavesOnly bool) ([]Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start, err := g.scopeLocked(scope)
	if err != nil {
		return nil, err
	}

	var out []Node
	walk(start, func(e *entry) {
		if leavesOnly && e.level != LevelElement {
			return
		}
		if e.mastery < threshold {
			out = append(out, e.toNode())
		}
	})
	SortWeakest(out)
	return out, nil
}

// SortWeakest orders nodes ascending by mastery, then descending by error
// count, then ascending by ID.
func SortWeakest(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Mastery != nodes[j].Mastery {
			return nodes[i].Mastery < nodes[j].Mastery
		}
		if nodes[i].ErrorCount != nodes[j].ErrorCount {
			return nodes[i].ErrorCount > nodes[j].ErrorCount
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// Snapshot returns a deep copy of the subtree rooted at scope with derived
// statuses filled in.
func (g *Graph) Snapshot(scope string) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start, err := g.scopeLocked(scope)
	if err != nil {
		return nil, err
	}
	return start.toTree(), nil
}

// States exports the state of every leaf for persistence.
func (g *Graph) States() []NodeState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []NodeState
	for _, e := range g.order {
		if e.level != LevelElement {
			continue
		}
		out = append(out, NodeState{
			ID:            e.id,
			Mastery:       e.mastery,
			ErrorCount:    e.errorCount,
			AttemptCount:  e.attemptCount,
			LastAttemptAt: timePtr(e.lastAttempt),
			Version:       e.version,
		})
	}
	return out
}

// Restore loads persisted leaf states and recomputes all parents.
// States for nodes no longer in the curriculum are skipped and returned.
func (g *Graph) Restore(states []NodeState) (skipped []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range states {
		e, ok := g.byID[s.ID]
		if !ok || e.level != LevelElement {
			skipped = append(skipped, s.ID)
			continue
		}
		e.mastery = clampMastery(s.Mastery)
		e.errorCount = s.ErrorCount
		e.attemptCount = s.AttemptCount
		e.version = s.Version
		e.lastAttempt = time.Time{}
		if s.LastAttemptAt != nil {
			e.lastAttempt = *s.LastAttemptAt
		}
	}

	// Post-order: children before parents.
	for i := len(g.order) - 1; i >= 0; i-- {
		if e := g.order[i]; len(e.children) > 0 {
			e.recompute()
		}
	}
	return skipped
}

func (g *Graph) scopeLocked(scope string) (*entry, error) {
	if scope == "" {
		return g.root, nil
	}
	e, ok := g.byID[scope]
	if !ok {
		return nil, fmt.Errorf("%w: scope %q", ErrNotFound, scope)
	}
	return e, nil
}

func walk(e *entry, fn func(*entry)) {
	fn(e)
	for _, c := range e.children {
		walk(c, fn)
	}
}

func (e *entry) toNode() Node {
	n := Node{
		ID:            e.id,
		Name:          e.name,
		Level:         e.level,
		Weight:        e.weight,
		Mastery:       e.mastery,
		Status:        StatusFor(e.mastery, e.attemptCount),
		ErrorCount:    e.errorCount,
		AttemptCount:  e.attemptCount,
		LastAttemptAt: timePtr(e.lastAttempt),
		Version:       e.version,
	}
	if e.parent != nil {
		n.ParentID = e.parent.id
	}
	return n
}

func (e *entry) toTree() *Node {
	n := e.toNode()
	for _, c := range e.children {
		n.Children = append(n.Children, c.toTree())
	}
	return &n
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// RoundHalfUp rounds x to the nearest integer, with .5 going up.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clampMastery(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxMastery {
		return MaxMastery
	}
	return v
}
