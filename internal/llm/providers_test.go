package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var verdictSchema = &Schema{
	Name: "test-verdict",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"error_type": map[string]any{"type": "string", "enum": []any{"conceptual", "computational", "typo"}},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required":             []any{"error_type", "confidence"},
		"additionalProperties": false,
	},
}

func serve(t *testing.T, status int, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func anthropicReply(text, stop string) map[string]any {
	return map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant",
		"model":       "claude-haiku-4-5-20251001",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 18},
	}
}

func openaiReply(text, finish string) map[string]any {
	return map[string]any{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": text},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 90, "completion_tokens": 12, "total_tokens": 102},
	}
}

func newAnthropic(t *testing.T, status int, body any) Provider {
	t.Helper()
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-haiku"},
		option.WithBaseURL(serve(t, status, body)), option.WithMaxRetries(0))
	require.NoError(t, err)
	return p
}

func newOpenAI(t *testing.T, status int, body any) Provider {
	t.Helper()
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-mini", BaseURL: serve(t, status, body) + "/v1"})
	require.NoError(t, err)
	return p
}

func TestProviders(t *testing.T) {
	const good = `{"error_type":"typo","confidence":0.9}`
	apiError := map[string]any{"type": "error", "error": map[string]any{"type": "api_error", "message": "boom"}}

	tests := []struct {
		name     string
		provider func(t *testing.T) Provider
		wantKind Kind
		wantErr  bool
		wantIn   int
	}{
		{"anthropic ok", func(t *testing.T) Provider { return newAnthropic(t, 200, anthropicReply(good, "end_turn")) }, 0, false, 120},
		{"anthropic schema violation", func(t *testing.T) Provider {
			return newAnthropic(t, 200, anthropicReply(`{"error_type":"misread","confidence":0.9}`, "end_turn"))
		}, KindInvalidResponse, true, 0},
		{"anthropic truncated", func(t *testing.T) Provider { return newAnthropic(t, 200, anthropicReply(`{"error_ty`, "max_tokens")) }, KindTruncated, true, 0},
		{"anthropic rate limited", func(t *testing.T) Provider { return newAnthropic(t, 429, apiError) }, KindRateLimited, true, 0},
		{"anthropic server error", func(t *testing.T) Provider { return newAnthropic(t, 500, apiError) }, KindUnavailable, true, 0},
		{"openai ok", func(t *testing.T) Provider { return newOpenAI(t, 200, openaiReply(good, "stop")) }, 0, false, 90},
		{"openai not json", func(t *testing.T) Provider { return newOpenAI(t, 200, openaiReply("typo, probably", "stop")) }, KindInvalidResponse, true, 0},
		{"openai truncated", func(t *testing.T) Provider { return newOpenAI(t, 200, openaiReply(`{"err`, "length")) }, KindTruncated, true, 0},
		{"openai rate limited", func(t *testing.T) Provider {
			return newOpenAI(t, 429, map[string]any{"error": map[string]any{"message": "slow down", "type": "tokens"}})
		}, KindRateLimited, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.provider(t).Generate(context.Background(), Request{
				System: "classify", Prompt: "Correct answer: 12\nLearner's answer: 21", Schema: verdictSchema, MaxTokens: 64,
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, tt.wantKind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, good, string(resp.Content))
			assert.Equal(t, tt.wantIn, resp.Usage.InputTokens)
			assert.Greater(t, resp.Usage.Total(), tt.wantIn)
		})
	}
}

func TestModelAliases(t *testing.T) {
	a, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-haiku"})
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5-20251001", a.ModelID())

	o, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4.1-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", o.ModelID())

	r, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "k", Model: "gpt-mini"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-mini", r.ModelID(), "openrouter IDs are not aliased")

	_, err = NewOpenRouterProvider(OpenRouterConfig{Model: "x"})
	assert.Error(t, err)
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(verdictSchema.Definition)
	require.Contains(t, s.Properties, "error_type")
	assert.Equal(t, []string{"conceptual", "computational", "typo"}, s.Properties["error_type"].Enum)
	assert.Equal(t, []string{"error_type", "confidence"}, s.Required)
	assert.Equal(t, geminiTypes["number"], s.Properties["confidence"].Type)
}

func TestSchemaValidate(t *testing.T) {
	var nilSchema *Schema
	assert.NoError(t, nilSchema.Validate(json.RawMessage(`not json`)))

	assert.NoError(t, verdictSchema.Validate(json.RawMessage(`{"error_type":"conceptual","confidence":0}`)))
	for _, bad := range []string{
		``,
		`{"error_type":"typo"}`,
		`{"error_type":"typo","confidence":1.5}`,
		`{"error_type":"typo","confidence":0.5,"extra":true}`,
	} {
		err := verdictSchema.Validate(json.RawMessage(bad))
		assert.True(t, IsKind(err, KindInvalidResponse), "input %q: %v", bad, err)
	}
}

func TestPurpose(t *testing.T) {
	assert.Equal(t, "unknown", PurposeFrom(context.Background()))
	assert.Equal(t, "error-classification", PurposeFrom(WithPurpose(context.Background(), "error-classification")))
}
