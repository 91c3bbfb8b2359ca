// Package config provides application configuration loaded from YAML with
// environment overrides.
package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Config is the root configuration for paperchat.
type Config struct {
	Server     ServerConfig     `yaml:"server,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	LLM        LLMConfig        `yaml:"llm,omitempty"`
	Repository RepositoryConfig `yaml:"repository,omitempty"`
	Search     SearchConfig     `yaml:"search,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Prompts    PromptsConfig    `yaml:"prompts,omitempty"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // listen host, default 127.0.0.1
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// LLMConfig configures the chat model collaborator.
type LLMConfig struct {
	APIKey string `yaml:"apiKey,omitempty"` // supports ${ENV_VAR} references
	Model  string `yaml:"model,omitempty"`
	// SendTimeout bounds a single model call. Expiry degrades to an inert
	// parsed turn rather than failing the request.
	SendTimeout time.Duration `yaml:"sendTimeout,omitempty"`
}

// RepositoryConfig configures the scholarly repository scraper.
type RepositoryConfig struct {
	BaseURL    string        `yaml:"baseUrl,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxResults int           `yaml:"maxResults,omitempty"`
}

// SearchConfig configures the search orchestration loop.
type SearchConfig struct {
	// MaxRounds caps how many search-agent rounds one user turn may drive.
	MaxRounds int `yaml:"maxRounds,omitempty"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// PromptsConfig points at the persona prompt files.
type PromptsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8094,
			Bind: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		LLM: LLMConfig{
			APIKey:      "${GEMINI_API_KEY}",
			Model:       "gemini-2.5-flash",
			SendTimeout: 30 * time.Second,
		},
		Repository: RepositoryConfig{
			BaseURL:    "https://digilib.uin-suka.ac.id",
			Timeout:    10 * time.Second,
			MaxResults: 5,
		},
		Search: SearchConfig{
			MaxRounds: 6,
		},
		Store: StoreConfig{
			Path: "./data/paperchat.db",
		},
		Prompts: PromptsConfig{
			Dir: "./prompts",
		},
	}
}
