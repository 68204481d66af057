package deploy_model

import (
	"fmt"
	"path"
	"strings"
)

// DeploymentRequest carries everything collected from the operator for one run.
type DeploymentRequest struct {
	RepositoryURL string `json:"repository_url" validate:"required,httpurl"`
	Token         string `json:"-" validate:"required"`
	Branch        string `json:"branch" validate:"required"`
	SSHUser       string `json:"ssh_user" validate:"required"`
	ServerAddress string `json:"server_address" validate:"required,dotted4"`
	SSHKeyPath    string `json:"ssh_key_path" validate:"required"`
	AppPort       int    `json:"app_port" validate:"required,min=1,max=65535"`
	ProjectName   string `json:"project_name" validate:"required,projectname"`
}

// SSHTarget returns user@address for log lines.
func (r DeploymentRequest) SSHTarget() string {
	return fmt.Sprintf("%s@%s", r.SSHUser, r.ServerAddress)
}

// ProjectNameFromURL derives the project name: the last path segment of the
// repository URL without a trailing ".git", lowercased because docker image
// and compose project names must be lowercase.
func ProjectNameFromURL(repoURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	name := path.Base(trimmed)
	name = strings.TrimSuffix(name, ".git")
	if name == "." || name == "/" {
		return ""
	}
	return strings.ToLower(name)
}
