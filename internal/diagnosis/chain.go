package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrClassifierTimeout is returned alongside the fallback result when the
// wrapped classifier did not answer before its deadline.
var ErrClassifierTimeout = errors.New("classifier timed out")

// DefaultTimeout bounds a single classification.
const DefaultTimeout = 2 * time.Second

type chain struct {
	classifiers []Classifier
}

// Chain returns a classifier that tries each classifier in order and
// returns the first successful result.
func Chain(classifiers ...Classifier) Classifier {
	return &chain{classifiers: classifiers}
}

func (c *chain) Name() string {
	names := make([]string, len(c.classifiers))
	for i, cl := range c.classifiers {
		names[i] = cl.Name()
	}
	return strings.Join(names, ",")
}

func (c *chain) Classify(ctx context.Context, input *Input) (Result, error) {
	var errs []error
	for _, cl := range c.classifiers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := cl.Classify(ctx, input)
		if err == nil {
			return res, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", cl.Name(), err))
	}
	if len(errs) == 0 {
		return Result{}, errors.New("no classifiers configured")
	}
	return Result{}, errors.Join(errs...)
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds each classification to timeout. When the wrapped
// classifier fails or runs out of time the fallback result is returned
// together with the error, so callers can log and continue. The call never
// blocks longer than timeout, even if the wrapped classifier ignores its
// context.
func WithTimeout(c Classifier, timeout time.Duration) Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutClassifier{next: c, timeout: timeout}
}

func (t *timeoutClassifier) Name() string { return t.next.Name() }

type classifyOutcome struct {
	res Result
	err error
}

func (t *timeoutClassifier) Classify(ctx context.Context, input *Input) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan classifyOutcome, 1)
	go func() {
		res, err := t.next.Classify(ctx, input)
		done <- classifyOutcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return fallbackResult(), fmt.Errorf("%w: %v", ErrClassifierTimeout, out.err)
			}
			return fallbackResult(), out.err
		}
		if !out.res.Type.Valid() {
			return fallbackResult(), fmt.Errorf("classifier %s returned unknown type %q", t.next.Name(), out.res.Type)
		}
		return out.res, nil
	case <-ctx.Done():
		return fallbackResult(), fmt.Errorf("%w after %s", ErrClassifierTimeout, t.timeout)
	}
}
