// Package answer normalizes learner answers and decides correctness.
package answer

import (
	"fmt"
	"strconv"
	"strings"
)

// Type describes how an expected answer is represented.
type Type string

const (
	TypeInteger  Type = "integer"  // e.g. "623", "-15"
	TypeDecimal  Type = "decimal"  // e.g. "3.75", "0.5"
	TypeFraction Type = "fraction" // e.g. "3/4", "7/2"
	TypeChoice   Type = "choice"   // one of Choices, by text or 1-based index
	TypeText     Type = "text"     // free text
)

// Valid reports whether t is a known answer type. The empty type is
// treated as text.
func (t Type) Valid() bool {
	switch t {
	case TypeInteger, TypeDecimal, TypeFraction, TypeChoice, TypeText, "":
		return true
	}
	return false
}

// Payload is an expected/given answer pair.
type Payload struct {
	Expected string   `json:"expected"`
	Given    string   `json:"given"`
	Type     Type     `json:"answer_type,omitempty"`
	Choices  []string `json:"choices,omitempty"`
}

// Check compares the learner's input against the expected answer.
//
// Normalization rules:
// - Whitespace is trimmed
// - Comparison is case-insensitive
// - For fractions: equivalent fractions are accepted (e.g., "2/4" matches "1/2")
// - For decimals: trailing zeros are ignored (e.g., "3.50" matches "3.5")
// - For integers: leading zeros are ignored (e.g., "007" matches "7")
// - For choices: matches against the choice text or index (1-based)
// - For text: the given answer must contain the expected answer
func Check(p Payload) bool {
	given := strings.TrimSpace(p.Given)
	if given == "" {
		return false
	}

	switch p.Type {
	case TypeChoice:
		return checkChoice(given, p.Expected, p.Choices)
	case TypeText, "":
		expected := strings.ToLower(strings.TrimSpace(p.Expected))
		return expected != "" && strings.Contains(strings.ToLower(given), expected)
	}

	normalizedGiven, err := Normalize(given, p.Type)
	if err != nil {
		return false
	}
	normalizedExpected, err := Normalize(p.Expected, p.Type)
	if err != nil {
		return false
	}
	return normalizedGiven == normalizedExpected
}

func checkChoice(given, expected string, choices []string) bool {
	if idx, err := strconv.Atoi(given); err == nil && idx >= 1 && idx <= len(choices) {
		return strings.EqualFold(strings.TrimSpace(choices[idx-1]), strings.TrimSpace(expected))
	}
	return strings.EqualFold(given, strings.TrimSpace(expected))
}

// Normalize returns the canonical string form of an answer.
func Normalize(s string, t Type) (string, error) {
	s = strings.TrimSpace(s)

	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid integer: %w", err)
		}
		return strconv.FormatInt(n, 10), nil

	case TypeDecimal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", fmt.Errorf("invalid decimal: %w", err)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case TypeFraction:
		num, den, err := parseFraction(s)
		if err != nil {
			return "", err
		}
		if den < 0 {
			num, den = -num, -den
		}
		g := gcd(abs(num), den)
		return fmt.Sprintf("%d/%d", num/g, den/g), nil

	default:
		return strings.ToLower(s), nil
	}
}

// Numeric parses an integer, decimal or fraction answer as a float.
func Numeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, "/") {
		num, den, err := parseFraction(s)
		if err != nil {
			return 0, false
		}
		return float64(num) / float64(den), true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseFraction parses "a/b" into numerator and denominator.
func parseFraction(s string) (int64, int64, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid fraction format: %q", s)
	}
	num, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid numerator: %w", err)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid denominator: %w", err)
	}
	if den == 0 {
		return 0, 0, fmt.Errorf("zero denominator")
	}
	return num, den, nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
