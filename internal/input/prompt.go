// Package input collects and validates the deployment request interactively.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	deploy_model "vps-deploy/datamodel/deploy-model"
	"vps-deploy/internal/logging"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/term"
)

// ErrInvalidInput marks input that cannot be accepted without re-prompting.
var ErrInvalidInput = errors.New("invalid input")

// Prompter asks the operator for each field of a deployment request
type Prompter struct {
	in            *bufio.Reader
	out           io.Writer
	readSecret    func() (string, error)
	validator     *Validator
	logger        *logging.Logger
	defaultBranch string
}

// NewPrompter creates a prompter reading answers from in. When in is a
// terminal the token is read without echo.
func NewPrompter(in io.Reader, out io.Writer, validator *Validator, logger *logging.Logger, defaultBranch string) *Prompter {
	p := &Prompter{
		in:            bufio.NewReader(in),
		out:           out,
		validator:     validator,
		logger:        logger.With("component", "input"),
		defaultBranch: defaultBranch,
	}
	p.readSecret = p.readLine
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.readSecret = func() (string, error) {
			secret, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(p.out)
			if err != nil {
				return "", fmt.Errorf("read secret: %w", err)
			}
			return strings.TrimSpace(string(secret)), nil
		}
	}
	return p
}

// SaveTerminal records the terminal state of f and returns a func that puts
// it back, for exits that bypass the restore of an interrupted hidden prompt.
// Non-terminals get a no-op.
func SaveTerminal(f *os.File) func() {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.GetState(fd)
	if err != nil {
		return func() {}
	}
	return func() { _ = term.Restore(fd, state) }
}

// Collect prompts for every field in order and returns the validated request
func (p *Prompter) Collect() (deploy_model.DeploymentRequest, error) {
	var req deploy_model.DeploymentRequest

	repoURL, projectName, err := p.askRepository()
	if err != nil {
		return req, err
	}
	req.RepositoryURL = repoURL
	req.ProjectName = projectName

	fmt.Fprint(p.out, "Enter access token: ")
	token, err := p.readSecret()
	if err != nil {
		return req, p.closed(err)
	}
	if token == "" {
		p.logger.Warning().Msg("Access token cannot be empty")
		return req, fmt.Errorf("%w: empty access token", ErrInvalidInput)
	}
	req.Token = token

	branch, err := p.ask(fmt.Sprintf("Enter branch [%s]: ", p.defaultBranch))
	if err != nil {
		return req, err
	}
	if branch == "" {
		branch = p.defaultBranch
	}
	req.Branch = branch

	user, err := p.ask("Enter SSH username: ")
	if err != nil {
		return req, err
	}
	if user == "" {
		p.logger.Warning().Msg("SSH username cannot be empty")
		return req, fmt.Errorf("%w: empty ssh username", ErrInvalidInput)
	}
	req.SSHUser = user

	address, err := p.askUntilValid("Enter server IP address: ", "Invalid IP address format", p.validator.Address)
	if err != nil {
		return req, err
	}
	req.ServerAddress = address

	keyPath, err := p.ask("Enter SSH key path: ")
	if err != nil {
		return req, err
	}
	keyPath, err = PrepareKeyFile(keyPath)
	if err != nil {
		p.logger.Warning().Err(err).Msg("SSH key file is not usable")
		return req, err
	}
	req.SSHKeyPath = keyPath

	var port int
	if _, err := p.askUntilValid("Enter application port: ", "Invalid port number (1-65535)", func(value string) error {
		parsed, err := p.validator.Port(value)
		port = parsed
		return err
	}); err != nil {
		return req, err
	}
	req.AppPort = port

	if err := p.validator.Request(req); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p.logger.Info().
		Str("project", req.ProjectName).
		Str("branch", req.Branch).
		Str("target", req.SSHTarget()).
		Int("port", req.AppPort).
		Msg("Deployment parameters collected")

	return req, nil
}

// askRepository prompts until the URL is valid and yields a usable project name
func (p *Prompter) askRepository() (string, string, error) {
	for {
		repoURL, err := p.askUntilValid("Enter repository URL: ", "Invalid URL format, expected http:// or https://", p.validator.URL)
		if err != nil {
			return "", "", err
		}
		projectName := deploy_model.ProjectNameFromURL(repoURL)
		if err := p.validator.ProjectName(projectName); err != nil {
			p.logger.Warning().Str("project", projectName).Msg("Cannot derive a project name from this URL")
			continue
		}
		p.logger.Info().Str("project", projectName).Msg("Project name derived from repository URL")
		return repoURL, projectName, nil
	}
}

// askUntilValid re-prompts until check accepts the answer or input ends
func (p *Prompter) askUntilValid(prompt, complaint string, check func(string) error) (string, error) {
	for {
		answer, err := p.ask(prompt)
		if err != nil {
			return "", err
		}
		if err := check(answer); err != nil {
			p.logger.Warning().Str("value", answer).Msg(complaint)
			continue
		}
		return answer, nil
	}
}

func (p *Prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	answer, err := p.readLine()
	if err != nil {
		return "", p.closed(err)
	}
	return answer, nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) closed(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: input closed", ErrInvalidInput)
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// PrepareKeyFile expands ~ in path, checks it names a readable regular file
// and restricts its permissions to owner read/write.
func PrepareKeyFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty ssh key path", ErrInvalidInput)
	}
	expanded, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("%w: expand ssh key path: %v", ErrInvalidInput, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: ssh key file %s: %v", ErrInvalidInput, expanded, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: ssh key path %s is not a regular file", ErrInvalidInput, expanded)
	}
	if err := os.Chmod(expanded, 0600); err != nil {
		return "", fmt.Errorf("%w: set permissions on %s: %v", ErrInvalidInput, expanded, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: ssh key file %s is not readable: %v", ErrInvalidInput, expanded, err)
	}
	_ = f.Close()
	return expanded, nil
}
