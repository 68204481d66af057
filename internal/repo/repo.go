// Package repo keeps the local working copy of the deployed repository in
// sync: first run clones the branch, later runs fetch and fast-forward it.
package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"vps-deploy/internal/forge"

	"github.com/rs/zerolog"
	"gopkg.in/src-d/go-git.v4"
	gitconfig "gopkg.in/src-d/go-git.v4/config"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/transport"
	githttp "gopkg.in/src-d/go-git.v4/plumbing/transport/http"
)

const remoteName = "origin"

// Result describes the state of the working copy after a sync
type Result struct {
	Dir    string
	Cloned bool
	Head   string
}

// Syncer clones or updates working copies
type Syncer struct {
	logger zerolog.Logger
}

// NewSyncer creates a syncer; git progress goes to logger
func NewSyncer(logger zerolog.Logger) *Syncer {
	return &Syncer{logger: logger.With().Str("component", "git").Logger()}
}

// Sync makes dir a checkout of branch from repoURL, authenticating with token
func (s *Syncer) Sync(ctx context.Context, dir, repoURL, token, branch string) (*Result, error) {
	cloneURL, err := forge.BuildCloneURL(repoURL, token)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(dir); err == nil {
		r, err := git.PlainOpen(dir)
		if err != nil {
			if errors.Is(err, git.ErrRepositoryNotExists) {
				return nil, fmt.Errorf("%s exists but is not a git repository", dir)
			}
			return nil, fmt.Errorf("open working copy: %w", err)
		}
		return s.update(ctx, r, dir, cloneURL, branch)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat working copy: %w", err)
	}

	return s.clone(ctx, dir, cloneURL, branch)
}

func (s *Syncer) clone(ctx context.Context, dir, cloneURL, branch string) (*Result, error) {
	s.logger.Info().
		Str("clone_url", forge.MaskTokenInURL(cloneURL)).
		Str("branch", branch).
		Str("dir", dir).
		Msg("Cloning repository")

	r, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           cloneURL,
		Auth:          authFor(cloneURL),
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Progress:      &gitOutputWriter{logger: s.logger},
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s: %w", forge.MaskTokenInURL(cloneURL), maskErr(err, cloneURL))
	}
	return s.result(r, dir, true)
}

func (s *Syncer) update(ctx context.Context, r *git.Repository, dir, cloneURL, branch string) (*Result, error) {
	s.logger.Info().
		Str("dir", dir).
		Str("branch", branch).
		Msg("Updating existing working copy")

	if err := setRemoteURL(r, cloneURL); err != nil {
		return nil, err
	}

	progress := &gitOutputWriter{logger: s.logger}
	auth := authFor(cloneURL)
	spec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remoteName, branch))
	err := r.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       auth,
		Progress:   progress,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("fetch: %w", maskErr(err, cloneURL))
	}

	remoteRef, err := r.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return nil, fmt.Errorf("branch %s not found on %s: %w", branch, remoteName, err)
	}

	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	local := plumbing.NewBranchReferenceName(branch)
	checkout := &git.CheckoutOptions{Branch: local}
	if _, err := r.Reference(local, true); err == plumbing.ErrReferenceNotFound {
		checkout.Create = true
		checkout.Hash = remoteRef.Hash()
	} else if err != nil {
		return nil, fmt.Errorf("resolve local branch: %w", err)
	}
	if err := wt.Checkout(checkout); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", branch, err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: local,
		SingleBranch:  true,
		Auth:          auth,
		Progress:      progress,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("pull: %w", maskErr(err, cloneURL))
	}
	return s.result(r, dir, false)
}

func (s *Syncer) result(r *git.Repository, dir string, cloned bool) (*Result, error) {
	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	return &Result{Dir: dir, Cloned: cloned, Head: head.Hash().String()}, nil
}

// setRemoteURL points origin at the current authenticated URL so a rotated
// token takes effect on update.
func setRemoteURL(r *git.Repository, cloneURL string) error {
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("read repository config: %w", err)
	}
	remote, ok := cfg.Remotes[remoteName]
	if !ok {
		return fmt.Errorf("working copy has no %s remote", remoteName)
	}
	if len(remote.URLs) == 1 && remote.URLs[0] == cloneURL {
		return nil
	}
	remote.URLs = []string{cloneURL}
	if err := r.Storer.SetConfig(cfg); err != nil {
		return fmt.Errorf("update %s url: %w", remoteName, err)
	}
	return nil
}

// authFor returns basic auth taken from the URL user info for HTTP remotes.
func authFor(cloneURL string) transport.AuthMethod {
	u, err := url.Parse(cloneURL)
	if err != nil || u.User == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	password, _ := u.User.Password()
	return &githttp.BasicAuth{Username: u.User.Username(), Password: password}
}

// maskErr keeps the token out of error text that echoes the remote URL.
func maskErr(err error, cloneURL string) error {
	masked := forge.MaskTokenInURL(cloneURL)
	if masked == cloneURL || !strings.Contains(err.Error(), cloneURL) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), cloneURL, masked))
}

// gitOutputWriter turns git progress output into log records
type gitOutputWriter struct {
	logger zerolog.Logger
}

func (w *gitOutputWriter) Write(p []byte) (n int, err error) {
	output := strings.TrimSpace(string(p))
	if output != "" {
		w.logger.Debug().Str("progress", output).Msg("Git progress")
	}
	return len(p), nil
}
