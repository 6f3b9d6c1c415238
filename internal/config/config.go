// Package config loads and validates the policydesk configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for policydesk.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Eval      EvalConfig      `yaml:"evaluation"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LLMConfig configures the text generation backend.
type LLMConfig struct {
	// Provider selects the generation backend: "openai" or "anthropic".
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider. Usually supplied via
	// POLICYDESK_LLM_API_KEY rather than the config file.
	APIKey string `yaml:"api_key"`

	// Model is the completion model identifier.
	Model string `yaml:"model"`

	// EmbeddingModel is the model used for query embeddings.
	EmbeddingModel string `yaml:"embedding_model"`

	// Temperature is the sampling temperature for completions.
	Temperature float32 `yaml:"temperature"`

	// MaxTokens caps completion length. 0 uses the provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// RetrievalConfig configures the vector store adapter.
type RetrievalConfig struct {
	// QdrantHost is the Qdrant server host.
	QdrantHost string `yaml:"qdrant_host"`

	// QdrantPort is the Qdrant gRPC port.
	QdrantPort int `yaml:"qdrant_port"`

	// Collection is the Qdrant collection holding document chunks.
	Collection string `yaml:"collection"`

	// OverFetch is how many fragments to request before length
	// filtering. Documents produce many tiny header/footer chunks, so
	// this is deliberately much larger than MaxFragments.
	OverFetch int `yaml:"over_fetch"`

	// MaxFragments is how many fragments survive into the prompt.
	MaxFragments int `yaml:"max_fragments"`
}

// EvalConfig selects the answer evaluation strategy.
type EvalConfig struct {
	// Method is "heuristic" or "judge". The heuristic strategy is always
	// available; judge requires a working generation backend and falls
	// back to heuristic on failure.
	Method string `yaml:"method"`
}

// SessionsConfig configures the conversation log sink.
type SessionsConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Path is the sqlite database file when Backend is "sqlite".
	Path string `yaml:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry tracing. Tracing is disabled
// when Endpoint is empty.
type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// Default returns a configuration with sensible defaults applied.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.1,
			MaxTokens:      1024,
		},
		Retrieval: RetrievalConfig{
			QdrantHost:   "localhost",
			QdrantPort:   6334,
			Collection:   "policy_documents",
			OverFetch:    100,
			MaxFragments: 5,
		},
		Eval:     EvalConfig{Method: "heuristic"},
		Sessions: SessionsConfig{Backend: "memory", Path: "policydesk.db"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Tracing:  TracingConfig{Environment: "development", SamplingRate: 1.0},
		Metrics:  MetricsConfig{Addr: ":9090"},
	}
}

// Load reads the configuration file at path, applies defaults for unset
// fields, then applies environment overrides. A missing file is not an
// error: the defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from POLICYDESK_* environment
// variables. Environment always wins over the file.
func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.LLM.Provider, "POLICYDESK_LLM_PROVIDER")
	setString(&c.LLM.APIKey, "POLICYDESK_LLM_API_KEY")
	setString(&c.LLM.Model, "POLICYDESK_LLM_MODEL")
	setString(&c.Retrieval.QdrantHost, "POLICYDESK_QDRANT_HOST")
	setString(&c.Retrieval.Collection, "POLICYDESK_QDRANT_COLLECTION")
	setString(&c.Eval.Method, "POLICYDESK_EVAL_METHOD")
	setString(&c.Sessions.Backend, "POLICYDESK_SESSIONS_BACKEND")
	setString(&c.Sessions.Path, "POLICYDESK_SESSIONS_PATH")
	setString(&c.Logging.Level, "POLICYDESK_LOG_LEVEL")
	setString(&c.Logging.Format, "POLICYDESK_LOG_FORMAT")
	setString(&c.Tracing.Endpoint, "POLICYDESK_OTLP_ENDPOINT")
	setString(&c.Metrics.Addr, "POLICYDESK_METRICS_ADDR")

	if v := os.Getenv("POLICYDESK_QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Retrieval.QdrantPort = port
		}
	}
}

// Validate checks invariants the rest of the system relies on.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Eval.Method {
	case "heuristic", "judge":
	default:
		return fmt.Errorf("config: unknown evaluation method %q", c.Eval.Method)
	}
	switch c.Sessions.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown sessions backend %q", c.Sessions.Backend)
	}
	if c.Retrieval.OverFetch < c.Retrieval.MaxFragments {
		return fmt.Errorf("config: over_fetch (%d) must be >= max_fragments (%d)",
			c.Retrieval.OverFetch, c.Retrieval.MaxFragments)
	}
	if c.Retrieval.MaxFragments <= 0 {
		return fmt.Errorf("config: max_fragments must be positive")
	}
	return nil
}
