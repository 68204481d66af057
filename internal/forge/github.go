package forge

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v55/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const defaultAPIBaseURL = "https://api.github.com/"

func (e *PreflightError) Error() string {
	return fmt.Sprintf("github preflight failed during %s: %v", e.Op, e.Err)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// Preflight asks the GitHub API whether a token can read a repository and
// whether the requested branch exists, before any clone is attempted.
type Preflight struct {
	apiBaseURL string
	logger     zerolog.Logger
}

// NewPreflight creates a preflight checker against the given API endpoint
func NewPreflight(apiBaseURL string, logger zerolog.Logger) *Preflight {
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	if !strings.HasSuffix(apiBaseURL, "/") {
		apiBaseURL += "/"
	}
	return &Preflight{
		apiBaseURL: apiBaseURL,
		logger:     logger.With().Str("component", "github").Logger(),
	}
}

// Applies reports whether the repository is hosted on github.com
func (p *Preflight) Applies(repoURL string) bool {
	host := strings.ToLower(ExtractHost(repoURL))
	return host == "github.com" || host == "www.github.com"
}

// Check verifies repository access and the branch ref
func (p *Preflight) Check(ctx context.Context, repoURL, token, branch string) (*RepoInfo, error) {
	owner, name, err := ExtractOwnerRepo(repoURL)
	if err != nil {
		return nil, &PreflightError{Op: "parse repository", Err: err}
	}

	client, err := p.client(ctx, token)
	if err != nil {
		return nil, &PreflightError{Op: "create client", Err: err}
	}

	p.logger.Debug().
		Str("owner", owner).
		Str("repository", name).
		Str("branch", branch).
		Msg("Checking repository access")

	repository, _, err := client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, &PreflightError{Op: "get repository", Err: err}
	}

	if _, _, err := client.Git.GetRef(ctx, owner, name, "heads/"+branch); err != nil {
		return nil, &PreflightError{Op: "get branch " + branch, Err: err}
	}

	return &RepoInfo{
		FullName:      repository.GetFullName(),
		DefaultBranch: repository.GetDefaultBranch(),
		Private:       repository.GetPrivate(),
	}, nil
}

func (p *Preflight) client(ctx context.Context, token string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if p.apiBaseURL != defaultAPIBaseURL {
		baseURL, err := url.Parse(p.apiBaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse api base url: %w", err)
		}
		client.BaseURL = baseURL
	}
	return client, nil
}
