// ABOUTME: Chooses an LLM provider from a prefixed model identifier and builds its mux client.
// ABOUTME: Supports ollama (local OpenAI-compatible), openai, anthropic and gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	muxllm "github.com/2389-research/mux/llm"
)

// ErrNoProvider is returned when the selected provider has no credentials.
var ErrNoProvider = errors.New("no LLM provider configured")

// Provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// DefaultAPIBase is where a local Ollama server listens.
const DefaultAPIBase = "http://localhost:11434"

// Settings carries the credentials and endpoint needed to build a client.
type Settings struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
	// Model is an optionally prefixed identifier such as "ollama/llama3:latest".
	Model   string
	APIBase string
}

// ParseModel splits a model identifier into provider and bare model name.
// Identifiers without a known prefix belong to OpenAI.
func ParseModel(id string) (provider, model string) {
	if prefix, rest, ok := strings.Cut(id, "/"); ok {
		switch strings.ToLower(prefix) {
		case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
			return strings.ToLower(prefix), rest
		}
	}
	return ProviderOpenAI, id
}

// NewClient returns a client for the provider named by s.Model along with the
// bare model name to put on requests.
func NewClient(ctx context.Context, s Settings) (muxllm.Client, string, error) {
	provider, model := ParseModel(s.Model)
	if model == "" {
		return nil, "", fmt.Errorf("empty model name in %q", s.Model)
	}

	switch provider {
	case ProviderOllama:
		return NewOpenAICompatClient("", model, ollamaV1(s.APIBase)), model, nil
	case ProviderOpenAI:
		if s.OpenAIKey == "" {
			return nil, "", fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNoProvider)
		}
		return muxllm.NewOpenAIClient(s.OpenAIKey, model), model, nil
	case ProviderAnthropic:
		if s.AnthropicKey == "" {
			return nil, "", fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrNoProvider)
		}
		return muxllm.NewAnthropicClient(s.AnthropicKey, model), model, nil
	case ProviderGemini:
		if s.GeminiKey == "" {
			return nil, "", fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNoProvider)
		}
		client, err := muxllm.NewGeminiClient(ctx, s.GeminiKey, model)
		if err != nil {
			return nil, "", fmt.Errorf("create gemini client: %w", err)
		}
		return client, model, nil
	}
	return nil, "", fmt.Errorf("%w: unknown provider %q", ErrNoProvider, provider)
}

func ollamaV1(base string) string {
	if base == "" {
		base = DefaultAPIBase
	}
	return strings.TrimRight(base, "/") + "/v1"
}
