package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, 60, cfg.Notifications.PollIntervalSec)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Microsoft.ClientID)
	assert.Contains(t, cfg.Microsoft.Scopes, "User.Read")
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api:
  base_url: https://leave.example.com/api
  timeout_sec: 10
notifications:
  poll_interval_sec: 15
microsoft:
  client_id: abc-123
  allowed_domains:
    - example.com
  enforce_domains: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://leave.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 10, cfg.API.TimeoutSec)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, 15, cfg.Notifications.PollIntervalSec)
	assert.Equal(t, "abc-123", cfg.Microsoft.ClientID)
	assert.Equal(t, []string{"example.com"}, cfg.Microsoft.AllowedDomains)
	assert.True(t, cfg.Microsoft.EnforceDomains)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LEAVEDESK_API_BASE_URL", "https://env.example.com/api")
	t.Setenv("LEAVEDESK_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api:
  timeout_sec: 0
  max_retries: -2
notifications:
  poll_interval_sec: -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, 0, cfg.API.MaxRetries)
	assert.Equal(t, 60, cfg.Notifications.PollIntervalSec)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.API.BaseURL = "https://saved.example.com/api"
	cfg.Notifications.PollIntervalSec = 90

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com/api", loaded.API.BaseURL)
	assert.Equal(t, 90, loaded.Notifications.PollIntervalSec)
}
