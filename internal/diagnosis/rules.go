package diagnosis

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/abhisek/adaptd/internal/answer"
)

// MagnitudeThreshold is the largest relative error (inclusive) still treated
// as a computational slip rather than a wrong method.
const MagnitudeThreshold = 0.5

// TextTypoRatio is the largest edit distance, relative to the expected
// answer's length, accepted as a typo for text answers.
const TextTypoRatio = 0.2

// OffByOneRule flags numeric answers that miss by exactly one unit.
type OffByOneRule struct{}

func (r *OffByOneRule) Name() string { return "off-by-one" }

func (r *OffByOneRule) Match(input *Input) (ErrorType, float64) {
	exp, act, ok := numericPair(input)
	if !ok {
		return "", 0
	}
	if math.Abs(exp-act) == 1 {
		return ErrorTypo, 0.8
	}
	return "", 0
}

// PlaceValueRule flags numeric answers that are the expected value shifted
// by a power of ten, or that swap two adjacent digits.
type PlaceValueRule struct{}

func (r *PlaceValueRule) Name() string { return "place-value" }

func (r *PlaceValueRule) Match(input *Input) (ErrorType, float64) {
	exp, act, ok := numericPair(input)
	if !ok || exp == 0 || act == 0 {
		return "", 0
	}
	for _, f := range []float64{10, 100, 1000} {
		if nearlyEqual(act, exp*f) || nearlyEqual(act*f, exp) {
			return ErrorTypo, 0.7
		}
	}
	if isAdjacentSwap(normalizeText(input.Expected), normalizeText(input.Actual)) {
		return ErrorTypo, 0.75
	}
	return "", 0
}

// EditDistanceRule flags answers within one edit of the expected text.
// Non-numeric answers also accept a distance proportional to their length.
type EditDistanceRule struct{}

func (r *EditDistanceRule) Name() string { return "edit-distance" }

func (r *EditDistanceRule) Match(input *Input) (ErrorType, float64) {
	exp, act := normalizeText(input.Expected), normalizeText(input.Actual)
	if exp == "" || act == "" {
		return "", 0
	}
	d := levenshtein.Distance(exp, act, nil)
	if d <= 1 {
		return ErrorTypo, 0.7
	}
	if _, _, numeric := numericPair(input); numeric {
		return "", 0
	}
	if float64(d) <= TextTypoRatio*float64(len([]rune(exp))) {
		return ErrorTypo, 0.6
	}
	return "", 0
}

// MagnitudeRule flags numeric answers close in magnitude to the expected
// value as computational errors.
type MagnitudeRule struct{}

func (r *MagnitudeRule) Name() string { return "magnitude" }

func (r *MagnitudeRule) Match(input *Input) (ErrorType, float64) {
	exp, act, ok := numericPair(input)
	if !ok || exp == 0 {
		return "", 0
	}
	if math.Abs(exp-act)/math.Abs(exp) <= MagnitudeThreshold {
		return ErrorComputational, 0.6
	}
	return "", 0
}

func numericPair(input *Input) (exp, act float64, ok bool) {
	if input.AnswerType == answer.TypeText || input.AnswerType == answer.TypeChoice {
		return 0, 0, false
	}
	exp, ok1 := answer.Numeric(input.Expected)
	act, ok2 := answer.Numeric(input.Actual)
	return exp, act, ok1 && ok2
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

// isAdjacentSwap reports whether b is a with exactly one pair of adjacent
// characters exchanged.
func isAdjacentSwap(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) || len(ra) < 2 || a == b {
		return false
	}
	i := 0
	for i < len(ra) && ra[i] == rb[i] {
		i++
	}
	if i+1 >= len(ra) || ra[i] != rb[i+1] || ra[i+1] != rb[i] {
		return false
	}
	return string(ra[i+2:]) == string(rb[i+2:])
}
