// ABOUTME: Startup check that the configured LLM provider is reachable or has credentials.
// ABOUTME: Probes a local Ollama server's model list; hosted providers only need a key.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PreflightTimeout bounds the local endpoint probe.
const PreflightTimeout = 5 * time.Second

// Preflight reports whether the provider selected by s.Model is usable.
// httpClient may be nil.
func Preflight(ctx context.Context, s Settings, httpClient *http.Client) error {
	provider, _ := ParseModel(s.Model)
	switch provider {
	case ProviderOpenAI:
		if s.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNoProvider)
		}
		return nil
	case ProviderAnthropic:
		if s.AnthropicKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrNoProvider)
		}
		return nil
	case ProviderGemini:
		if s.GeminiKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNoProvider)
		}
		return nil
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := s.APIBase
	if base == "" {
		base = DefaultAPIBase
	}

	ctx, cancel := context.WithTimeout(ctx, PreflightTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build ollama probe: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama at %s returned status %d", base, resp.StatusCode)
	}
	return nil
}
