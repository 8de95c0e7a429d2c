// Package engine records attempts and answers "how is this learner doing"
// and "what should they practise next".
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/adaptd/internal/analytics"
	"github.com/abhisek/adaptd/internal/answer"
	"github.com/abhisek/adaptd/internal/attemptlog"
	"github.com/abhisek/adaptd/internal/diagnosis"
	"github.com/abhisek/adaptd/internal/knowledge"
	"github.com/abhisek/adaptd/internal/logger"
	"github.com/abhisek/adaptd/internal/mastery"
	"github.com/abhisek/adaptd/internal/selector"
	"github.com/abhisek/adaptd/internal/sink"
	"github.com/abhisek/adaptd/internal/store"
)

var (
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSnapshotsDisabled is returned by SaveSnapshot without a snapshot repo.
	ErrSnapshotsDisabled = errors.New("snapshots are not configured")
)

const (
	DefaultSnapshotEvery = 20
	DefaultSnapshotKeep  = 5
	DefaultWeakAreas     = 5

	// profileReaders bounds concurrent log reads of StrugglingLearners.
	profileReaders = 8
)

// Config holds the tunables of an Engine.
type Config struct {
	Policy            selector.Policy
	Estimator         mastery.Config
	ClassifierTimeout time.Duration

	// SnapshotEvery saves a learner snapshot after this many attempts.
	// Zero disables automatic snapshots.
	SnapshotEvery int
	SnapshotKeep  int

	Struggling analytics.Criteria
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Policy:            selector.DefaultPolicy(),
		Estimator:         mastery.DefaultConfig(),
		ClassifierTimeout: diagnosis.DefaultTimeout,
		SnapshotEvery:     DefaultSnapshotEvery,
		SnapshotKeep:      DefaultSnapshotKeep,
		Struggling:        analytics.DefaultCriteria(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Estimator.Validate(); err != nil {
		return err
	}
	if c.ClassifierTimeout < 0 {
		return fmt.Errorf("classifier timeout must be >= 0, got %s", c.ClassifierTimeout)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot interval must be >= 0, got %d", c.SnapshotEvery)
	}
	if err := c.Struggling.Validate(); err != nil {
		return fmt.Errorf("struggling criteria: %w", err)
	}
	return nil
}

// Deps are the collaborators of an Engine. Only Curriculum is required.
type Deps struct {
	Curriculum *knowledge.Graph
	Classifier diagnosis.Classifier // defaults to the rule classifier
	Log        attemptlog.Log       // defaults to an in-memory log
	Snapshots  store.SnapshotRepo
	Events     store.EventRepo
	Publisher  sink.Publisher
	Logger     *logger.Logger
	Now        func() time.Time
}

// Engine owns the mastery state of every learner.
type Engine struct {
	cfg        Config
	template   *knowledge.Graph
	estimator  *mastery.Estimator
	classifier diagnosis.Classifier
	log        attemptlog.Log
	snapshots  store.SnapshotRepo
	events     store.EventRepo
	publisher  sink.Publisher
	logger     *logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	learners map[string]*learner
}

// learner is the state of one learner. Learners share nothing mutable.
type learner struct {
	id    string
	locks *lockTable

	loadMu sync.Mutex
	loaded bool

	// state is held shared while attempts are recorded and exclusively
	// while the graph and sessions are snapshotted or swapped.
	state sync.RWMutex
	graph *knowledge.Graph
	sel   *selector.Selector

	mu            sync.Mutex
	lastSeq       int64
	sinceSnapshot int
}

// New creates an engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Curriculum == nil {
		return nil, fmt.Errorf("engine: curriculum is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if cfg.SnapshotKeep <= 0 {
		cfg.SnapshotKeep = DefaultSnapshotKeep
	}

	e := &Engine{
		cfg:       cfg,
		template:  deps.Curriculum,
		estimator: mastery.NewEstimator(cfg.Estimator),
		log:       deps.Log,
		snapshots: deps.Snapshots,
		events:    deps.Events,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
		learners:  make(map[string]*learner),
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = diagnosis.NewRuleClassifier()
	}
	e.classifier = diagnosis.WithTimeout(classifier, cfg.ClassifierTimeout)
	if e.log == nil {
		e.log = attemptlog.NewMemory()
	}
	if e.publisher == nil {
		e.publisher = sink.Nop()
	}
	if e.logger == nil {
		e.logger = logger.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Curriculum returns the graph template learners start from.
func (e *Engine) Curriculum() *knowledge.Graph { return e.template }

// AttemptInput is one answer submitted for grading.
type AttemptInput struct {
	NodeID     string
	Expected   string
	Given      string
	AnswerType answer.Type
	Choices    []string

	// Correct overrides answer checking when set.
	Correct *bool

	// Difficulty the task was served at, 1–5. Zero means the session's
	// current difficulty.
	Difficulty       int
	TimeSpentSeconds float64
	At               time.Time
}

// AttemptResult is what RecordAttempt reports back.
type AttemptResult struct {
	AttemptID       uuid.UUID             `json:"attempt_id"`
	Sequence        int64                 `json:"sequence"`
	NodeID          string                `json:"node_id"`
	Correct         bool                  `json:"correct"`
	MasteryBefore   int                   `json:"mastery_before"`
	NewMasteryLevel int                   `json:"new_mastery_level"`
	Status          knowledge.Status      `json:"status"`
	NextDifficulty  int                   `json:"next_difficulty"`
	DifficultyLabel string                `json:"difficulty_label"`
	Phase           selector.Phase        `json:"phase"`
	Transitions     []selector.Transition `json:"transitions,omitempty"`
	ErrorType       diagnosis.ErrorType   `json:"error_type,omitempty"`
	Classifier      string                `json:"classifier,omitempty"`
	Remediation     string                `json:"remediation,omitempty"`
}

// RecordAttempt grades an answer, classifies it when wrong, updates the
// learner's mastery and session, and appends it to the attempt log.
//
// Classification happens before the per-node lock is taken; attempts on the
// same node are then applied in the order they reached the lock.
func (e *Engine) RecordAttempt(ctx context.Context, learnerID string, in AttemptInput) (*AttemptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if learnerID == "" {
		return nil, fmt.Errorf("%w: learner ID is required", ErrInvalidInput)
	}
	if !in.AnswerType.Valid() {
		return nil, fmt.Errorf("%w: unknown answer type %q", ErrInvalidInput, in.AnswerType)
	}
	if in.TimeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: time spent must be >= 0", ErrInvalidInput)
	}

	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	l.state.RLock()
	leaf, err := l.graph.Leaf(in.NodeID)
	difficulty := in.Difficulty
	if err == nil && difficulty == 0 {
		difficulty = l.sel.Session(in.NodeID).NextDifficulty()
	}
	l.state.RUnlock()
	if err != nil {
		return nil, err
	}
	if difficulty < selector.MinDifficulty || difficulty > selector.MaxDifficulty {
		return nil, fmt.Errorf("%w: difficulty %d out of range 1-5", ErrInvalidInput, difficulty)
	}

	var correct bool
	if in.Correct != nil {
		correct = *in.Correct
	} else {
		correct = answer.Check(answer.Payload{
			Expected: in.Expected,
			Given:    in.Given,
			Type:     in.AnswerType,
			Choices:  in.Choices,
		})
	}

	var cls diagnosis.Result
	if !correct {
		cls = e.classify(ctx, learnerID, leaf, in)
	}

	at := in.At
	if at.IsZero() {
		at = e.now()
	}

	att := &attemptlog.Attempt{
		LearnerID:        learnerID,
		NodeID:           in.NodeID,
		Timestamp:        at,
		Correct:          correct,
		TimeSpentSeconds: in.TimeSpentSeconds,
		Difficulty:       difficulty,
		ErrorType:        cls.Type,
		Classifier:       cls.Classifier,
	}

	l.state.RLock()
	res, ev, snapshotDue, err := e.apply(ctx, l, att)
	l.state.RUnlock()
	if err != nil {
		return nil, err
	}

	// Sinks run outside the node lock. Consumers order events by Sequence.
	if ev != nil {
		if err := e.publisher.Publish(ctx, *ev); err != nil {
			e.logger.Warn("publish mastery event failed", "learner_id", learnerID, "node_id", ev.NodeID, "sequence", ev.Sequence, "error", err)
		}
	}

	if snapshotDue {
		if _, err := e.SaveSnapshot(ctx, learnerID); err != nil {
			e.logger.Warn("automatic snapshot failed", "learner_id", learnerID, "error", err)
		}
	}

	if !correct {
		res.Remediation = diagnosis.Remediation(cls.Type, leaf.Name)
	}
	return res, nil
}

func (e *Engine) classify(ctx context.Context, learnerID string, leaf knowledge.Node, in AttemptInput) diagnosis.Result {
	res, err := e.classifier.Classify(ctx, &diagnosis.Input{
		Expected:   in.Expected,
		Actual:     in.Given,
		Topic:      leaf.Name,
		AnswerType: in.AnswerType,
	})
	if err != nil {
		e.logger.Warn("error classification fell back",
			"learner_id", learnerID, "node_id", leaf.ID, "fallback", res.Type, "error", err)
	}
	return res
}

// apply runs the serialized part of RecordAttempt and returns the event to
// publish once the node lock is released. Caller holds l.state for reading.
func (e *Engine) apply(ctx context.Context, l *learner, att *attemptlog.Attempt) (*AttemptResult, *sink.Event, bool, error) {
	release, err := l.locks.get(att.NodeID).Lock(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	defer release()

	if err := e.log.Append(ctx, att); err != nil {
		return nil, nil, false, fmt.Errorf("append attempt: %w", err)
	}

	upd, err := e.estimator.Apply(l.graph, att.NodeID, outcomeOf(att), att.Timestamp)
	if err != nil {
		if errors.Is(err, knowledge.ErrConcurrentUpdate) {
			e.logger.Error("mastery write conflict", "learner_id", l.id, "node_id", att.NodeID, "sequence", att.Sequence, "error", err)
		}
		return nil, nil, false, err
	}

	sess, trs := l.sel.Observe(att.NodeID, selector.Observation{
		Correct:       att.Correct,
		Difficulty:    att.Difficulty,
		MasteryBefore: upd.Before.Mastery,
		MasteryAfter:  upd.After.Mastery,
	})
	due := e.noteApplied(l, att.Sequence)

	e.logger.Debug("attempt recorded",
		"learner_id", l.id, "node_id", att.NodeID, "sequence", att.Sequence,
		"correct", att.Correct, "mastery_before", upd.Before.Mastery, "mastery_after", upd.After.Mastery,
		"phase", sess.Phase)

	for _, tr := range trs {
		e.logger.Info("phase transition", "learner_id", l.id, "node_id", tr.NodeID,
			"from", tr.From, "to", tr.To, "trigger", tr.Trigger)
		if e.events == nil {
			continue
		}
		if err := e.events.AppendTransition(ctx, l.id, tr, att.Timestamp); err != nil {
			e.logger.Warn("record transition failed", "learner_id", l.id, "error", err)
		}
	}

	next := sess.NextDifficulty()

	return &AttemptResult{
		AttemptID:       att.ID,
		Sequence:        att.Sequence,
		NodeID:          att.NodeID,
		Correct:         att.Correct,
		MasteryBefore:   upd.Before.Mastery,
		NewMasteryLevel: upd.After.Mastery,
		Status:          upd.After.Status,
		NextDifficulty:  next,
		DifficultyLabel: selector.DifficultyLabel(next),
		Phase:           sess.Phase,
		Transitions:     trs,
		ErrorType:       att.ErrorType,
		Classifier:      att.Classifier,
	}, e.event(l, att, upd, sess, trs), due, nil
}

// event captures the mastery path as it stood when att was applied.
func (e *Engine) event(l *learner, att *attemptlog.Attempt, upd mastery.Result, sess selector.Session, trs []selector.Transition) *sink.Event {
	path, err := l.graph.Path(att.NodeID)
	if err != nil {
		e.logger.Warn("build mastery event path failed", "node_id", att.NodeID, "error", err)
		return nil
	}
	return &sink.Event{
		LearnerID:     l.id,
		AttemptID:     att.ID.String(),
		Sequence:      att.Sequence,
		NodeID:        att.NodeID,
		Correct:       att.Correct,
		ErrorType:     string(att.ErrorType),
		MasteryBefore: upd.Before.Mastery,
		MasteryAfter:  upd.After.Mastery,
		Phase:         sess.Phase,
		Difficulty:    sess.NextDifficulty(),
		Transitions:   trs,
		Path:          sink.PathFrom(path),
		At:            att.Timestamp,
	}
}

// noteApplied tracks the highest applied sequence and reports whether an
// automatic snapshot is due.
func (e *Engine) noteApplied(l *learner, seq int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq > l.lastSeq {
		l.lastSeq = seq
	}
	l.sinceSnapshot++
	return e.snapshots != nil && e.cfg.SnapshotEvery > 0 && l.sinceSnapshot >= e.cfg.SnapshotEvery
}

func outcomeOf(a *attemptlog.Attempt) mastery.Outcome {
	return mastery.Outcome{Correct: a.Correct, Difficulty: a.Difficulty, ErrorType: a.ErrorType}
}

// GraphSnapshot returns a deep copy of the learner's graph under scope.
// An empty scope returns the whole tree.
func (e *Engine) GraphSnapshot(ctx context.Context, learnerID, scope string) (*knowledge.Node, error) {
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	l.state.RLock()
	defer l.state.RUnlock()
	return l.graph.Snapshot(scope)
}

// WeakAreas returns up to n attempted leaves below the target mastery,
// weakest first. n <= 0 means DefaultWeakAreas.
func (e *Engine) WeakAreas(ctx context.Context, learnerID string, n int) ([]knowledge.Node, error) {
	if n <= 0 {
		n = DefaultWeakAreas
	}
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	l.state.RLock()
	weak, err := l.graph.WeakLeaves(e.cfg.Policy.TargetMasteryPercent, "")
	l.state.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]knowledge.Node, 0, n)
	for _, w := range weak {
		if w.AttemptCount == 0 {
			continue
		}
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// WeakNodes returns every node under scope, at any level and attempted or
// not, whose mastery is below threshold, weakest first. threshold <= 0
// means the target mastery.
func (e *Engine) WeakNodes(ctx context.Context, learnerID, scope string, threshold int) ([]knowledge.Node, error) {
	if threshold <= 0 {
		threshold = e.cfg.Policy.TargetMasteryPercent
	}
	if threshold > knowledge.MaxMastery {
		return nil, fmt.Errorf("%w: threshold %d above %d", ErrInvalidInput, threshold, knowledge.MaxMastery)
	}
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	l.state.RLock()
	defer l.state.RUnlock()
	return l.graph.WeakNodes(threshold, scope)
}

// LearnerProfile summarises the learner's whole attempt log. It reads the
// log only and does not load mastery state.
func (e *Engine) LearnerProfile(ctx context.Context, learnerID string) (analytics.LearnerProfile, error) {
	if learnerID == "" {
		return analytics.LearnerProfile{}, fmt.Errorf("%w: learner ID is required", ErrInvalidInput)
	}
	atts, err := e.log.Since(ctx, learnerID, 0)
	if err != nil {
		return analytics.LearnerProfile{}, fmt.Errorf("read attempts of %s: %w", learnerID, err)
	}
	return analytics.Profile(learnerID, atts), nil
}

// StrugglingLearners profiles every learner in the attempt log and reports
// those meeting the configured struggling criteria.
func (e *Engine) StrugglingLearners(ctx context.Context) (analytics.StrugglingReport, error) {
	ids, err := e.log.Learners(ctx)
	if err != nil {
		return analytics.StrugglingReport{}, fmt.Errorf("list learners: %w", err)
	}

	profiles := make([]analytics.LearnerProfile, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileReaders)
	for i, id := range ids {
		g.Go(func() error {
			p, err := e.LearnerProfile(gctx, id)
			if err != nil {
				return err
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return analytics.StrugglingReport{}, err
	}
	return analytics.Struggling(profiles, e.cfg.Struggling), nil
}

// NextTask picks the topic and difficulty of the learner's next task under
// topicID. An empty topicID means the whole curriculum.
func (e *Engine) NextTask(ctx context.Context, learnerID, topicID string) (selector.Task, error) {
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return selector.Task{}, err
	}
	l.state.RLock()
	defer l.state.RUnlock()
	return l.sel.Next(l.graph, topicID)
}

// Session returns the learner's adaptation session on an element.
func (e *Engine) Session(ctx context.Context, learnerID, nodeID string) (selector.Session, error) {
	l, err := e.learner(ctx, learnerID)
	if err != nil {
		return selector.Session{}, err
	}
	l.state.RLock()
	defer l.state.RUnlock()
	if _, err := l.graph.Leaf(nodeID); err != nil {
		return selector.Session{}, err
	}
	return l.sel.Session(nodeID), nil
}

// learner returns the learner's state, loading it from the latest
// snapshot and the attempt log on first use.
func (e *Engine) learner(ctx context.Context, id string) (*learner, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: learner ID is required", ErrInvalidInput)
	}

	e.mu.Lock()
	l, ok := e.learners[id]
	if !ok {
		l = &learner{id: id, locks: newLockTable()}
		e.learners[id] = l
	}
	e.mu.Unlock()

	l.loadMu.Lock()
	defer l.loadMu.Unlock()
	if l.loaded {
		return l, nil
	}
	st, _, err := e.rebuild(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load learner %s: %w", id, err)
	}
	l.install(st)
	l.loaded = true
	return l, nil
}
