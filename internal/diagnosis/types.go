package diagnosis

import "github.com/abhisek/adaptd/internal/answer"

// ErrorType classifies a wrong answer.
type ErrorType string

const (
	ErrorConceptual    ErrorType = "conceptual"
	ErrorComputational ErrorType = "computational"
	ErrorTypo          ErrorType = "typo"
)

// AllErrorTypes returns every error type.
func AllErrorTypes() []ErrorType {
	return []ErrorType{ErrorConceptual, ErrorComputational, ErrorTypo}
}

// Valid reports whether t is one of the known error types.
func (t ErrorType) Valid() bool {
	switch t {
	case ErrorConceptual, ErrorComputational, ErrorTypo:
		return true
	}
	return false
}

// FallbackType is used when no classifier produces a result in time.
const FallbackType = ErrorComputational

// FallbackName is recorded as the classifier name for fallback results.
const FallbackName = "fallback"

// Input holds the context for classification.
type Input struct {
	Expected   string
	Actual     string
	Topic      string
	AnswerType answer.Type
}

// Result is the output of classifying a wrong answer.
type Result struct {
	Type       ErrorType `json:"error_type"`
	Confidence float64   `json:"confidence"`
	Classifier string    `json:"classifier"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

func fallbackResult() Result {
	return Result{Type: FallbackType, Classifier: FallbackName}
}
