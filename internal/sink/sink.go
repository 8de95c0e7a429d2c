// Package sink publishes mastery changes to external systems.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/selector"
)

// NodeMastery is the state of one node on the path of an update.
type NodeMastery struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Level   knowledge.Level  `json:"level"`
	Mastery int              `json:"mastery_level"`
	Status  knowledge.Status `json:"status"`
}

// Event describes one recorded attempt and the mastery it produced.
type Event struct {
	LearnerID     string                `json:"learner_id"`
	AttemptID     string                `json:"attempt_id"`
	Sequence      int64                 `json:"sequence"`
	NodeID        string                `json:"node_id"`
	Correct       bool                  `json:"correct"`
	ErrorType     string                `json:"error_type,omitempty"`
	MasteryBefore int                   `json:"mastery_before"`
	MasteryAfter  int                   `json:"mastery_after"`
	Phase         selector.Phase        `json:"phase"`
	Difficulty    int                   `json:"next_difficulty"`
	Transitions   []selector.Transition `json:"transitions,omitempty"`
	Path          []NodeMastery         `json:"path"` // root first, leaf last
	At            time.Time             `json:"at"`
}

// PathFrom converts a root-to-leaf node path.
func PathFrom(nodes []knowledge.Node) []NodeMastery {
	out := make([]NodeMastery, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeMastery{ID: n.ID, Name: n.Name, Level: n.Level, Mastery: n.Mastery, Status: n.Status})
	}
	return out
}

// Publisher delivers events. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close(ctx context.Context) error
}

// Multi fans an event out to every publisher. Nil publishers are skipped.
func Multi(pubs ...Publisher) Publisher {
	var live []Publisher
	for _, p := range pubs {
		if p != nil {
			live = append(live, p)
		}
	}
	if len(live) == 0 {
		return Nop()
	}
	if len(live) == 1 {
		return live[0]
	}
	return multi(live)
}

type multi []Publisher

func (m multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close(ctx context.Context) error {
	var errs []error
	for _, p := range m {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nop struct{}

// Nop returns a publisher that drops every event.
func Nop() Publisher { return nop{} }

func (nop) Publish(context.Context, Event) error { return nil }
func (nop) Close(context.Context) error          { return nil }
