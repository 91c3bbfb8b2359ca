package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8094, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.SendTimeout)
	assert.Equal(t, 6, cfg.Search.MaxRounds)
	assert.Equal(t, 5, cfg.Repository.MaxResults)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paperchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
search:
  maxRounds: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Search.MaxRounds)
	// Untouched sections keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, "https://digilib.uin-suka.ac.id", cfg.Repository.BaseURL)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config:")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAPERCHAT_PORT", "7777")
	t.Setenv("PAPERCHAT_LOG_LEVEL", "DEBUG")
	t.Setenv("PAPERCHAT_LLM_TIMEOUT", "45s")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 45*time.Second, cfg.LLM.SendTimeout)
}

func TestAPIKeyExpansion(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "sk-test-123")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.LLM.APIKey)
}

func TestExpandEnvVarsLeavesUnsetReferences(t *testing.T) {
	assert.Equal(t, "${DEFINITELY_NOT_SET_XYZ}", expandEnvVars("${DEFINITELY_NOT_SET_XYZ}"))
}
