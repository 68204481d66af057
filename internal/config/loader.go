package config

import (
	"fmt"
	"os"
	"time"
)

const (
	defaultBranch              = "main"
	defaultSSHPort             = 22
	defaultSSHConnectTimeout   = 10 * time.Second
	defaultGracePeriod         = 10 * time.Second
	defaultProbeTimeout        = 10 * time.Second
	defaultNginxSitesAvailable = "/etc/nginx/sites-available"
	defaultNginxSitesEnabled   = "/etc/nginx/sites-enabled"
	defaultGitHubAPIBaseURL    = "https://api.github.com/"
	defaultLogLevel            = "info"

	TransportSSH   = "ssh"
	TransportLocal = "local"
)

// New creates a new Config instance with default values
func New() *Config {
	baseDir := getBaseDir()
	return &Config{
		LogDir:              baseDir,
		WorkDir:             baseDir,
		DefaultBranch:       defaultBranch,
		SSHPort:             defaultSSHPort,
		SSHConnectTimeout:   defaultSSHConnectTimeout,
		GracePeriod:         defaultGracePeriod,
		ProbeTimeout:        defaultProbeTimeout,
		NginxSitesAvailable: defaultNginxSitesAvailable,
		NginxSitesEnabled:   defaultNginxSitesEnabled,
		Transport:           TransportSSH,
		GitHubAPIBaseURL:    defaultGitHubAPIBaseURL,
		GitHubPreflight:     true,
		LogLevel:            defaultLogLevel,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.SSHPort < 1 || c.SSHPort > 65535 {
		return fmt.Errorf("invalid ssh port number: %d", c.SSHPort)
	}
	if c.SSHConnectTimeout <= 0 {
		return fmt.Errorf("ssh connect timeout must be positive, got %s", c.SSHConnectTimeout)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace period cannot be negative, got %s", c.GracePeriod)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.DefaultBranch == "" {
		return fmt.Errorf("default branch cannot be empty")
	}
	switch c.Transport {
	case TransportSSH, TransportLocal:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportSSH, TransportLocal)
	}

	for _, dir := range []string{c.LogDir, c.WorkDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// getBaseDir returns the directory the deployer was started from
func getBaseDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
