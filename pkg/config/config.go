package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for tabletalk.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets (LLM
// API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// FrontendOrigin is the origin allowed by the CORS middleware.
	FrontendOrigin string `yaml:"frontend_origin" env:"FRONTEND_ORIGIN" env-default:"http://localhost:5173"`

	// Store configuration (embedded SQLite)
	Database DatabaseConfig `yaml:"database"`

	// Upload limits
	Upload UploadConfig `yaml:"upload"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`
}

// DatabaseConfig holds the embedded store configuration.
type DatabaseConfig struct {
	// Path is the on-disk SQLite file backing all uploaded tables.
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"db/tabletalk.db"`

	// QueryTimeoutSeconds bounds safe-executor store calls. NL-driven
	// queries can be arbitrarily expensive, so this must stay finite.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// UploadConfig holds file ingestion limits.
type UploadConfig struct {
	// MaxBytes caps the size of an uploaded file after decompression.
	MaxBytes int64 `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"33554432"`
}

// LLMConfig holds provider credentials and model selection. When both
// providers are configured, OpenAI is preferred.
type LLMConfig struct {
	OpenAIAPIKey   string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
	OpenAIModel    string `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	AnthropicKey   string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	AnthropicModel string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-0"`
}

// QueryTimeout returns the safe-executor timeout as a duration.
func (c *DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable
// overrides. The YAML file is optional; without it configuration comes from
// the environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.Database.QueryTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("query_timeout_seconds must be positive")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return nil, fmt.Errorf("upload max_bytes must be positive")
	}

	return cfg, nil
}
