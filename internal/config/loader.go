package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} references in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Load reads the config file, applies defaults and environment overrides, and
// expands credential references. A missing file yields defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.SendTimeout <= 0 {
		cfg.LLM.SendTimeout = def.LLM.SendTimeout
	}
	if cfg.Repository.BaseURL == "" {
		cfg.Repository.BaseURL = def.Repository.BaseURL
	}
	if cfg.Repository.Timeout <= 0 {
		cfg.Repository.Timeout = def.Repository.Timeout
	}
	if cfg.Repository.MaxResults <= 0 {
		cfg.Repository.MaxResults = def.Repository.MaxResults
	}
	if cfg.Search.MaxRounds <= 0 {
		cfg.Search.MaxRounds = def.Search.MaxRounds
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Prompts.Dir == "" {
		cfg.Prompts.Dir = def.Prompts.Dir
	}
}

// applyEnvOverrides reads PAPERCHAT_* environment variables over config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPERCHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PAPERCHAT_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("PAPERCHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PAPERCHAT_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PAPERCHAT_REPO_URL"); v != "" {
		cfg.Repository.BaseURL = v
	}
	if v := os.Getenv("PAPERCHAT_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.LLM.SendTimeout = d
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.LLM.APIKey == "${GEMINI_API_KEY}" {
		cfg.LLM.APIKey = v
	}
}
