package knowledge

import "errors"

var (
	// ErrNotFound is returned when a node ID does not exist in the graph.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidNode is returned when an operation that requires an
	// element-level leaf references a missing or non-leaf node.
	ErrInvalidNode = errors.New("invalid node")

	// ErrConcurrentUpdate is returned when a mastery write was computed from
	// a stale leaf version. Writers are serialized per node, so seeing this
	// means an invariant was broken.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
)
