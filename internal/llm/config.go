package llm

import (
	"fmt"
	"strings"
	"time"
)

// Config selects and configures the provider behind the LLM classifier.
type Config struct {
	// Provider is one of anthropic, openai, gemini, openrouter or scripted.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one Generate call including its retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig picks small, cheap models; classification prompts are short.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash-lite"},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2,
		},
		Timeout: 20 * time.Second,
	}
}

// ConfigFromLookup overlays ADAPTD_* variables on DefaultConfig. When
// ADAPTD_LLM_PROVIDER is unset, the first vendor key found among
// ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY and OPENROUTER_API_KEY
// selects the provider. A malformed ADAPTD_LLM_TIMEOUT keeps the default.
func ConfigFromLookup(lookup func(string) (string, bool)) Config {
	get := func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}
	cfg := DefaultConfig()

	keys := []struct {
		provider string
		dst      *string
	}{
		{"anthropic", &cfg.Anthropic.APIKey},
		{"openai", &cfg.OpenAI.APIKey},
		{"gemini", &cfg.Gemini.APIKey},
		{"openrouter", &cfg.OpenRouter.APIKey},
	}
	discovered := ""
	for _, k := range keys {
		vendor := strings.ToUpper(k.provider) + "_API_KEY"
		if v := get("ADAPTD_" + vendor); v != "" {
			*k.dst = v
		} else if v := get(vendor); v != "" {
			*k.dst = v
		}
		if *k.dst != "" && discovered == "" {
			discovered = k.provider
		}
	}

	for name, dst := range map[string]*string{
		"ANTHROPIC_MODEL":     &cfg.Anthropic.Model,
		"OPENAI_MODEL":        &cfg.OpenAI.Model,
		"OPENAI_BASE_URL":     &cfg.OpenAI.BaseURL,
		"GEMINI_MODEL":        &cfg.Gemini.Model,
		"OPENROUTER_MODEL":    &cfg.OpenRouter.Model,
		"OPENROUTER_BASE_URL": &cfg.OpenRouter.BaseURL,
	} {
		if v := get("ADAPTD_" + name); v != "" {
			*dst = v
		}
	}

	switch p := get("ADAPTD_LLM_PROVIDER"); {
	case p != "":
		cfg.Provider = p
	case discovered != "":
		cfg.Provider = discovered
	}
	if d, err := time.ParseDuration(get("ADAPTD_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

// Validate reports a missing key for the selected provider.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "scripted":
		return nil
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s provider needs ADAPTD_%s_API_KEY", c.Provider, strings.ToUpper(c.Provider))
	}
	return nil
}
