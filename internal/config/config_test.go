package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestManager(env map[string]string) *Manager {
	m := NewManager(zerolog.Nop())
	m.lookup = func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	return m
}

func TestLoadDefaults(t *testing.T) {
	tmp := t.TempDir()
	c, err := newTestManager(map[string]string{
		"DEPLOY_LOG_DIR":  tmp,
		"DEPLOY_WORK_DIR": tmp,
	}).Load()
	require.NoError(t, err)

	require.Equal(t, "main", c.DefaultBranch)
	require.Equal(t, 22, c.SSHPort)
	require.Equal(t, 10*time.Second, c.SSHConnectTimeout)
	require.Equal(t, 10*time.Second, c.GracePeriod)
	require.Equal(t, "/etc/nginx/sites-available", c.NginxSitesAvailable)
	require.Equal(t, "/etc/nginx/sites-enabled", c.NginxSitesEnabled)
	require.Equal(t, TransportSSH, c.Transport)
	require.True(t, c.GitHubPreflight)
	require.Empty(t, c.RemoteBaseDir)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	tmp := t.TempDir()
	c, err := newTestManager(map[string]string{
		"DEPLOY_LOG_DIR":              tmp,
		"DEPLOY_WORK_DIR":             tmp,
		"DEPLOY_REMOTE_DIR":           "/srv/apps",
		"DEPLOY_DEFAULT_BRANCH":       "develop",
		"DEPLOY_SSH_PORT":             "2222",
		"DEPLOY_SSH_TIMEOUT_SECONDS":  "3",
		"DEPLOY_GRACE_PERIOD_SECONDS": "0",
		"DEPLOY_TRANSPORT":            "LOCAL",
		"DEPLOY_GITHUB_PREFLIGHT":     "false",
	}).Load()
	require.NoError(t, err)

	require.Equal(t, "/srv/apps", c.RemoteBaseDir)
	require.Equal(t, "develop", c.DefaultBranch)
	require.Equal(t, 2222, c.SSHPort)
	require.Equal(t, 3*time.Second, c.SSHConnectTimeout)
	require.Equal(t, time.Duration(0), c.GracePeriod)
	require.Equal(t, TransportLocal, c.Transport)
	require.False(t, c.GitHubPreflight)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	tmp := t.TempDir()
	c, err := newTestManager(map[string]string{
		"DEPLOY_LOG_DIR":  tmp,
		"DEPLOY_WORK_DIR": tmp,
		"DEPLOY_SSH_PORT": "twenty-two",
	}).Load()
	require.NoError(t, err)
	require.Equal(t, 22, c.SSHPort)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.SSHPort = 0 }},
		{"port too large", func(c *Config) { c.SSHPort = 70000 }},
		{"zero connect timeout", func(c *Config) { c.SSHConnectTimeout = 0 }},
		{"negative grace period", func(c *Config) { c.GracePeriod = -time.Second }},
		{"empty branch", func(c *Config) { c.DefaultBranch = "" }},
		{"unknown transport", func(c *Config) { c.Transport = "telnet" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.LogDir = t.TempDir()
			c.WorkDir = c.LogDir
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
