package diagnosis

import "context"

// Classifier maps a wrong answer to an error type. Implementations must be
// deterministic for deterministic inputs and safe for concurrent use.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, input *Input) (Result, error)
}

// Rule is a single deterministic classification rule.
// Returns a type and confidence (0.0–1.0), or ("", 0) if the rule doesn't apply.
type Rule interface {
	Name() string
	Match(input *Input) (ErrorType, float64)
}

// DefaultRules returns rules in priority order. Slip detection comes first
// since a near-miss is more likely a typo than a misunderstanding even when
// the magnitude is also close.
func DefaultRules() []Rule {
	return []Rule{
		&OffByOneRule{},
		&PlaceValueRule{},
		&EditDistanceRule{},
		&MagnitudeRule{},
	}
}

// RunRules executes rules in order.
// Returns the first match, or ("", 0, "") if no rules apply.
func RunRules(rules []Rule, input *Input) (ErrorType, float64, string) {
	for _, r := range rules {
		t, conf := r.Match(input)
		if t != "" {
			return t, conf, r.Name()
		}
	}
	return "", 0, ""
}

// RuleClassifier classifies with DefaultRules and treats anything no rule
// explains as a conceptual error.
type RuleClassifier struct {
	rules []Rule
}

// NewRuleClassifier creates a rule classifier. With no rules given,
// DefaultRules is used.
func NewRuleClassifier(rules ...Rule) *RuleClassifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleClassifier{rules: rules}
}

func (c *RuleClassifier) Name() string { return "rules" }

func (c *RuleClassifier) Classify(_ context.Context, input *Input) (Result, error) {
	t, conf, name := RunRules(c.rules, input)
	if t == "" {
		return Result{Type: ErrorConceptual, Confidence: 0.5, Classifier: c.Name() + "/default"}, nil
	}
	return Result{Type: t, Confidence: conf, Classifier: c.Name() + "/" + name}, nil
}
