package forge

import (
	"fmt"
	"net/url"
	"strings"
)

// StyleForHost picks the token convention for a git host. Unknown hosts get
// the GitHub convention.
func StyleForHost(host string) TokenStyle {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	if strings.Contains(host, "gitlab") {
		return StyleGitLab
	}
	return StyleGitHub
}

// BuildCloneURL creates a clone URL with the token injected per host convention.
// Non-HTTP URLs and an empty token leave the URL unchanged.
func BuildCloneURL(repoURL, token string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("parse repository url: %w", err)
	}
	if token == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return repoURL, nil
	}

	switch StyleForHost(u.Host) {
	case StyleGitLab:
		u.User = url.UserPassword("oauth2", token)
	default:
		u.User = url.User(token)
	}
	return u.String(), nil
}

// MaskTokenInURL masks the token in a URL for logging
func MaskTokenInURL(cloneURL string) string {
	u, err := url.Parse(cloneURL)
	if err != nil || u.User == nil {
		return cloneURL
	}
	masked := "****"
	if _, hasToken := u.User.Password(); hasToken {
		masked = u.User.Username() + ":****"
	} else if u.User.Username() == "" {
		return cloneURL
	}
	u.User = nil
	return strings.Replace(u.String(), "://", "://"+masked+"@", 1)
}

// ExtractHost extracts the host from a repository URL
func ExtractHost(repoURL string) string {
	u, err := url.Parse(repoURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// ExtractOwnerRepo splits a repository URL path into owner and repository name
func ExtractOwnerRepo(repoURL string) (string, string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("parse repository url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository path %q is not owner/name", u.Path)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
