package pipeline

import (
	"context"
	"sync"
	"time"

	deploy_model "vps-deploy/datamodel/deploy-model"
	"vps-deploy/internal/config"
	"vps-deploy/internal/forge"
	"vps-deploy/internal/logging"
	"vps-deploy/internal/nginx"
	"vps-deploy/internal/project"
	"vps-deploy/internal/remote"
	"vps-deploy/internal/repo"
)

// Status is the outcome of one step
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Step is one unit of the run. A failing Action stops the run with Code.
type Step struct {
	Name   string
	Code   int
	Action func(ctx context.Context) error
}

// StepResult records how a step went
type StepResult struct {
	Name     string
	Status   Status
	Started  time.Time
	Duration time.Duration
	Err      error
}

// StepError is the error returned for the step that stopped the run
type StepError struct {
	Step string
	Code int
	Err  error
}

// Runner executes steps in order and remembers which one is running
type Runner struct {
	logger  *logging.Logger
	mu      sync.RWMutex
	current string
	results []StepResult
}

// Collector supplies the deployment request
type Collector interface {
	Collect() (deploy_model.DeploymentRequest, error)
}

// Syncer brings the local working copy up to date
type Syncer interface {
	Sync(ctx context.Context, dir, repoURL, token, branch string) (*repo.Result, error)
}

// Dialer opens an executor on the target
type Dialer func(ctx context.Context, target remote.Target) (remote.Executor, error)

// Prober requests url and returns the HTTP status code
type Prober func(ctx context.Context, url string) (int, error)

// Sleeper waits for d unless ctx ends first
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customises a Deployer
type Option func(*Deployer)

// Deployer drives a deploy or cleanup run against one target
type Deployer struct {
	cfg       *config.Config
	logger    *logging.Logger
	runner    *Runner
	collector Collector
	syncer    Syncer
	preflight *forge.Preflight
	dial      Dialer
	probe     Prober
	sleep     Sleeper
	sites     nginx.Paths

	// per-run state
	req      deploy_model.DeploymentRequest
	localDir string
	layout   *project.Layout
	exec     remote.Executor
}
