package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles configuration loading from the environment
type Manager struct {
	logger zerolog.Logger
	lookup func(string) (string, bool)
}

// NewManager creates a new configuration manager reading the process environment
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "config").Logger(),
		lookup: os.LookupEnv,
	}
}

// Load builds the configuration from defaults overridden by environment variables
func (m *Manager) Load() (*Config, error) {
	config := New()
	m.loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	m.logger.Debug().
		Str("log_dir", config.LogDir).
		Str("work_dir", config.WorkDir).
		Str("transport", config.Transport).
		Int("ssh_port", config.SSHPort).
		Dur("grace_period", config.GracePeriod).
		Msg("Configuration loaded")

	return config, nil
}

// loadFromEnvironment loads configuration from environment variables
func (m *Manager) loadFromEnvironment(config *Config) {
	m.setString(&config.LogDir, "DEPLOY_LOG_DIR")
	m.setString(&config.WorkDir, "DEPLOY_WORK_DIR")
	m.setString(&config.RemoteBaseDir, "DEPLOY_REMOTE_DIR")
	m.setString(&config.DefaultBranch, "DEPLOY_DEFAULT_BRANCH")
	m.setInt(&config.SSHPort, "DEPLOY_SSH_PORT")
	m.setSeconds(&config.SSHConnectTimeout, "DEPLOY_SSH_TIMEOUT_SECONDS")
	m.setString(&config.SSHKeyPassphrase, "SSH_KEY_PASSPHRASE")
	m.setSeconds(&config.GracePeriod, "DEPLOY_GRACE_PERIOD_SECONDS")
	m.setSeconds(&config.ProbeTimeout, "DEPLOY_PROBE_TIMEOUT_SECONDS")
	m.setString(&config.NginxSitesAvailable, "NGINX_SITES_AVAILABLE")
	m.setString(&config.NginxSitesEnabled, "NGINX_SITES_ENABLED")
	m.setString(&config.Transport, "DEPLOY_TRANSPORT")
	m.setString(&config.GitHubAPIBaseURL, "GITHUB_API_BASE_URL")
	m.setBool(&config.GitHubPreflight, "DEPLOY_GITHUB_PREFLIGHT")
	m.setString(&config.LogLevel, "LOG_LEVEL")

	config.Transport = strings.ToLower(config.Transport)
}

// setString sets a string field from an environment variable when it is set and non-empty
func (m *Manager) setString(field *string, key string) {
	if value, ok := m.lookup(key); ok && strings.TrimSpace(value) != "" {
		*field = strings.TrimSpace(value)
	}
}

// setInt sets an integer field from an environment variable, keeping the default on parse errors
func (m *Manager) setInt(field *int, key string) {
	value, ok := m.lookup(key)
	if !ok || value == "" {
		return
	}
	intVal, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Str("value", value).Msg("Ignoring invalid integer setting")
		return
	}
	*field = intVal
}

// setSeconds sets a duration field from an environment variable expressed in whole seconds
func (m *Manager) setSeconds(field *time.Duration, key string) {
	seconds := -1
	m.setInt(&seconds, key)
	if seconds >= 0 {
		*field = time.Duration(seconds) * time.Second
	}
}

// setBool sets a boolean field from an environment variable
func (m *Manager) setBool(field *bool, key string) {
	value, ok := m.lookup(key)
	if !ok || value == "" {
		return
	}
	boolVal, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Str("value", value).Msg("Ignoring invalid boolean setting")
		return
	}
	*field = boolVal
}
