// ABOUTME: Tests for configuration resolution across defaults, environment, files and .env.
// ABOUTME: Each test builds a fresh viper instance so results do not leak between tests.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "MODEL", "API_BASE",
		"HOST", "PORT", "OUTPUT_DIR", "TRACING_ENABLED", "TRACING_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != DefaultLocalModel {
		t.Errorf("expected local model without keys, got %q", cfg.Model)
	}
	if cfg.Port != 8000 || cfg.Host != "0.0.0.0" {
		t.Errorf("unexpected address %s", cfg.Addr())
	}
	if cfg.APIBase != "http://localhost:11434" {
		t.Errorf("unexpected api base %q", cfg.APIBase)
	}
	if cfg.Tracing.Enabled {
		t.Error("expected tracing disabled by default")
	}
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9001")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != DefaultHostedModel {
		t.Errorf("expected hosted default model with key, got %q", cfg.Model)
	}
	if cfg.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Port)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.OTLPEndpoint != "collector:4317" {
		t.Errorf("unexpected tracing config %+v", cfg.Tracing)
	}
	if s := cfg.LLMSettings(); s.OpenAIKey != "sk-test" || s.Model != DefaultHostedModel {
		t.Errorf("unexpected llm settings %+v", s)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "featurecrew.yaml")
	content := "model: anthropic/claude-sonnet-4-5\nport: 8100\ntracing:\n  exporter: otlp\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "8200")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "anthropic/claude-sonnet-4-5" {
		t.Errorf("expected model from file, got %q", cfg.Model)
	}
	if cfg.Port != 8200 {
		t.Errorf("expected environment to override file, got %d", cfg.Port)
	}
	if cfg.Tracing.Exporter != "otlp" {
		t.Errorf("expected exporter from file, got %q", cfg.Tracing.Exporter)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "70000")
	if _, err := Load(New(), ""); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL", "ollama/mistral")
	os.Unsetenv("API_BASE")
	t.Cleanup(func() { os.Unsetenv("API_BASE") })

	path := filepath.Join(t.TempDir(), ".env")
	content := "# local settings\nMODEL=ollama/phi3\nAPI_BASE=\"http://gpu:11434\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("MODEL"); got != "ollama/mistral" {
		t.Errorf("expected existing env to win, got %q", got)
	}
	if got := os.Getenv("API_BASE"); got != "http://gpu:11434" {
		t.Errorf("expected API_BASE from .env, got %q", got)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}
