package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/adaptd/internal/logger"
)

// RetryProvider re-issues failed requests with jittered exponential
// backoff.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	log    *logger.Logger
}

// WithRetry wraps p. A nil log discards retry warnings.
func WithRetry(p Provider, cfg RetryConfig, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	return &RetryProvider{inner: p, config: cfg, log: log}
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidRetried := false
	attempt := 0
	for {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		attempt++
		if attempt >= r.config.MaxAttempts || !r.shouldRetry(err, &invalidRetried) {
			return nil, err
		}

		wait := r.backoff(attempt-1, err)
		r.log.Warn("llm request failed, retrying",
			"purpose", PurposeFrom(ctx),
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// shouldRetry reports whether err is worth another attempt. Invalid
// responses get exactly one retry per call; errors from outside the
// package are assumed to be transport failures.
func (r *RetryProvider) shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return true
	}
	if e.Kind == KindInvalidResponse {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
	}
	return e.Retryable()
}

// backoff honours a provider-supplied RetryAfter, otherwise grows
// exponentially up to MaxWait with 20% jitter.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter
	}
	wait := min(float64(r.config.InitialWait)*math.Pow(r.config.Multiplier, float64(attempt)), float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(max(wait, 0))
}
