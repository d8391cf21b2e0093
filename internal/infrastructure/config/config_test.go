package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.AgentHub.HeartbeatInterval)
	assert.Equal(t, 90*time.Second, cfg.AgentHub.HeartbeatTimeout)
	assert.Equal(t, 30*time.Second, cfg.AgentHub.CommandTimeout)
	assert.Equal(t, "1.0.0", cfg.AgentHub.MinProtocolVersion)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenCacheTTL)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panel.yaml")
	content := `
server:
  port: 9090
agent_hub:
  command_timeout: 5s
  heartbeat_timeout: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GAMEPANEL_AGENT_HUB_HEARTBEAT_TIMEOUT", "2m")

	cfg, err := Load("release", path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 5*time.Second, cfg.AgentHub.CommandTimeout)
	assert.Equal(t, 2*time.Minute, cfg.AgentHub.HeartbeatTimeout)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
