package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind groups provider failures by how a caller should react to them.
type Kind int

const (
	KindUnavailable Kind = iota
	KindRateLimited
	KindInvalidResponse
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindInvalidResponse:
		return "invalid response"
	case KindTruncated:
		return "truncated"
	default:
		return "unavailable"
	}
}

// Error is the single error type returned by providers.
type Error struct {
	Kind       Kind
	RetryAfter time.Duration
	// Content is the offending reply for invalid or truncated responses.
	Content json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "llm: " + e.Kind.String()
	}
	return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed on a later try.
// Truncation depends on MaxTokens and will repeat.
func (e *Error) Retryable() bool { return e.Kind != KindTruncated }

// InvalidResponse wraps a reply that failed parsing or validation.
func InvalidResponse(content json.RawMessage, err error) *Error {
	return &Error{Kind: KindInvalidResponse, Content: content, Err: err}
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// fromStatus classifies an SDK failure by its HTTP status code. Anything
// that is not a 429 is treated as the provider being unavailable.
func fromStatus(status int, err error) error {
	if status == http.StatusTooManyRequests {
		return &Error{Kind: KindRateLimited, Err: err}
	}
	return &Error{Kind: KindUnavailable, Err: err}
}
