// ABOUTME: Service configuration assembled by viper from flags, environment, an optional file and defaults.
// ABOUTME: A .env file is read first and never overrides variables already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"

	"github.com/2389-research/featurecrew/llm"
	"github.com/2389-research/featurecrew/tracing"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Model defaults depend on which credentials exist.
const (
	DefaultHostedModel = "gpt-4o-mini"
	DefaultLocalModel  = "ollama/llama3:latest"
)

// Config is the resolved service configuration.
type Config struct {
	OpenAIAPIKey    string         `mapstructure:"openai_api_key"`
	AnthropicAPIKey string         `mapstructure:"anthropic_api_key"`
	GeminiAPIKey    string         `mapstructure:"gemini_api_key"`
	Model           string         `mapstructure:"model"`
	APIBase         string         `mapstructure:"api_base"`
	Host            string         `mapstructure:"host"`
	Port            int            `mapstructure:"port"`
	OutputDir       string         `mapstructure:"output_dir"`
	Tracing         tracing.Config `mapstructure:"tracing"`
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	tc := tracing.DefaultConfig()

	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("model", "")
	v.SetDefault("api_base", llm.DefaultAPIBase)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("output_dir", ".")
	v.SetDefault("tracing.enabled", tc.Enabled)
	v.SetDefault("tracing.exporter", tc.Exporter)
	v.SetDefault("tracing.file_path", "")
	v.SetDefault("tracing.otlp_endpoint", tc.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", tc.SampleRate)
	v.SetDefault("tracing.service_name", tc.ServiceName)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "TRACING_OTLP_ENDPOINT")
	return v
}

// Load reads cfgFile when non-empty and resolves the configuration.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Model == "" {
		if cfg.OpenAIAPIKey != "" {
			cfg.Model = DefaultHostedModel
		} else {
			cfg.Model = DefaultLocalModel
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at listen time.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LLMSettings returns the provider settings derived from the configuration.
func (c Config) LLMSettings() llm.Settings {
	return llm.Settings{
		OpenAIKey:    c.OpenAIAPIKey,
		AnthropicKey: c.AnthropicAPIKey,
		GeminiKey:    c.GeminiAPIKey,
		Model:        c.Model,
		APIBase:      c.APIBase,
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding existing variables. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
