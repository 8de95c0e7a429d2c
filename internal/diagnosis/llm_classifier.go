package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/adaptd/internal/llm"
)

// LLMConfig holds configuration for the LLM classifier.
type LLMConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		MaxTokens:   256,
		Temperature: 0,
	}
}

// LLMClassifier asks a language model to classify a wrong answer.
type LLMClassifier struct {
	provider llm.Provider
	cfg      LLMConfig
}

// NewLLMClassifier creates an LLM-backed classifier.
func NewLLMClassifier(provider llm.Provider, cfg LLMConfig) *LLMClassifier {
	return &LLMClassifier{provider: provider, cfg: cfg}
}

func (c *LLMClassifier) Name() string { return "llm" }

// classificationOutput is the raw LLM response.
type classificationOutput struct {
	ErrorType  string  `json:"error_type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (c *LLMClassifier) Classify(ctx context.Context, input *Input) (Result, error) {
	ctx = llm.WithPurpose(ctx, "error-classification")

	userMsg, err := buildClassificationMessage(input)
	if err != nil {
		return Result{}, fmt.Errorf("build classification prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      classificationSystemPrompt,
		Prompt:      userMsg,
		Schema:      ClassificationSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("LLM classification failed: %w", err)
	}

	var raw classificationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return Result{}, fmt.Errorf("failed to parse classification response: %w", err)
	}

	t := ErrorType(raw.ErrorType)
	if !t.Valid() {
		return Result{}, llm.InvalidResponse(resp.Content, fmt.Errorf("unknown error_type %q", raw.ErrorType))
	}

	return Result{
		Type:       t,
		Confidence: raw.Confidence,
		Classifier: c.Name(),
		Reasoning:  raw.Reasoning,
	}, nil
}

const classificationSystemPrompt = `You are an expert education diagnostician. A learner answered a question incorrectly. Classify the error into exactly one category:

- conceptual: the learner used the wrong method, rule or idea.
- computational: the method is right but a calculation step went wrong.
- typo: the answer is right in substance but mistyped (swapped, missing or extra character, misplaced decimal point).

Instructions:
- Choose the single most likely category.
- Provide a confidence score (0.0–1.0).
- Keep reasoning to one sentence.`

var classificationUserTemplate = template.Must(template.New("classification").Parse(`Topic: {{.Topic}}
Correct answer: {{.Expected}}
Learner's answer: {{.Actual}}
{{- if .AnswerType}}
Answer type: {{.AnswerType}}
{{- end}}
`))

func buildClassificationMessage(input *Input) (string, error) {
	var buf bytes.Buffer
	if err := classificationUserTemplate.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}
