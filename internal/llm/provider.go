// Package llm is a thin, provider-neutral client for single-turn structured
// completions. The diagnosis package uses it to classify wrong answers.
package llm

import (
	"context"
	"encoding/json"
)

// Provider produces one completion per call.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a single-turn prompt. When Schema is set the provider asks for
// JSON output and the reply is validated before it is returned.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema names a JSON Schema document. Name doubles as the cache key for the
// compiled form, so distinct definitions need distinct names.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

type purposeKey struct{}

// WithPurpose labels outgoing requests for the usage ledger.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// finish validates content against the request schema and assembles the
// response. A truncated reply is never handed back as content.
func finish(req Request, content json.RawMessage, truncated bool, model string, usage Usage) (*Response, error) {
	if truncated {
		return nil, &Error{Kind: KindTruncated, Content: content}
	}
	if err := req.Schema.Validate(content); err != nil {
		return nil, err
	}
	return &Response{Content: content, Usage: usage, Model: model}, nil
}

// resolveModel maps a short alias to a provider model ID. Unknown names pass
// through unchanged.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
