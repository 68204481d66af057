package config

import "time"

// Config holds the deployer configuration settings
type Config struct {
	// LogDir specifies the directory receiving one log file per run
	LogDir string `json:"log_dir"`
	// WorkDir specifies the directory holding local working copies, one per project
	WorkDir string `json:"work_dir"`
	// RemoteBaseDir is the parent of the project directory on the remote host; empty means $HOME
	RemoteBaseDir string `json:"remote_base_dir"`
	// DefaultBranch is used when the branch prompt is left empty
	DefaultBranch string `json:"default_branch"`
	// SSHPort is the port of the remote SSH daemon
	SSHPort int `json:"ssh_port"`
	// SSHConnectTimeout bounds the SSH connection handshake
	SSHConnectTimeout time.Duration `json:"ssh_connect_timeout"`
	// SSHKeyPassphrase unlocks an encrypted private key
	SSHKeyPassphrase string `json:"-"`
	// GracePeriod is the wait between starting the application and checking it runs
	GracePeriod time.Duration `json:"grace_period"`
	// ProbeTimeout bounds each HTTP probe of the validation step
	ProbeTimeout time.Duration `json:"probe_timeout"`
	// NginxSitesAvailable is the directory receiving rendered site files
	NginxSitesAvailable string `json:"nginx_sites_available"`
	// NginxSitesEnabled is the directory holding the enabled site symlinks
	NginxSitesEnabled string `json:"nginx_sites_enabled"`
	// Transport selects how commands reach the target: "ssh" or "local"
	Transport string `json:"transport"`
	// GitHubAPIBaseURL is the GitHub REST endpoint used by the clone preflight
	GitHubAPIBaseURL string `json:"github_api_base_url"`
	// GitHubPreflight enables the repository and branch check before cloning from github.com
	GitHubPreflight bool `json:"github_preflight"`
	// LogLevel is the minimum level written by the logger
	LogLevel string `json:"log_level"`
}
