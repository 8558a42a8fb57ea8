// Package config loads the runtime's YAML configuration and overlays
// environment variables, following the pattern of config/config.go and
// config/env.go in the teacher codebase. It maps spec.md §6's
// `config.toml` keys (llm.endpoint/api_key/model, vdb.*) onto the
// equivalent YAML structure used by the rest of this module's ambient
// stack.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig holds the connection details for the chat-completion backend.
// Mirrors spec.md §6 `config.toml`'s `llm.*` keys.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"` // openai | anthropic | ollama
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model,omitempty"`
	// TimeoutSeconds is the configurable request timeout (§5), default 120.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 120
	}
}

func (c *LLMConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	return nil
}

// VectorStoreConfig mirrors spec.md §6 `config.toml`'s `vdb.*` keys.
type VectorStoreConfig struct {
	Type     string `yaml:"type,omitempty"` // qdrant | pinecone | chroma | pgvector | chromem
	DBName   string `yaml:"dbname,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	HostAddr string `yaml:"hostaddr,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

func (c *VectorStoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "chromem"
	}
}

// EmbedderConfig configures the embedding client adapter.
type EmbedderConfig struct {
	Provider  string `yaml:"provider,omitempty"` // openai | cohere | ollama
	Endpoint  string `yaml:"endpoint,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	Model     string `yaml:"model,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
}

// Config is the top-level, unified configuration entry point, the
// equivalent of the teacher's `Config` struct in config/config.go.
type Config struct {
	Debug       bool              `yaml:"debug,omitempty"`
	LogLevel    string            `yaml:"log_level,omitempty"`
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vectorstore"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	MetricsAddr string            `yaml:"metrics_addr,omitempty"`
}

func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.VectorStore.SetDefaults()
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm config invalid: %w", err)
	}
	return nil
}

// Load reads a YAML config file at path, loads a .env file from the current
// working directory (if present) via godotenv, expands ${VAR}/${VAR:-default}/$VAR references
// in the resulting raw bytes, then unmarshals and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	envSimple      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvVars expands ${VAR:-default}, ${VAR}, and $VAR references,
// matching config/env.go's precedence order (most specific first).
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})

	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envBraced.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})

	s = envSimple.ReplaceAllStringFunc(s, func(match string) string {
		parts := envSimple.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})

	return s
}
