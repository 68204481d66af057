// Package pipeline runs the deployment as an ordered list of steps, each with
// its own failure exit code, and the cleanup sequence that undoes it.
package pipeline

import (
	"context"
	"time"

	"vps-deploy/internal/config"
	"vps-deploy/internal/forge"
	"vps-deploy/internal/logging"
	"vps-deploy/internal/nginx"
	"vps-deploy/internal/remote"
	"vps-deploy/internal/repo"
)

// Step names, in run order
const (
	StepCollect      = "Collect Input"
	StepClone        = "Clone/Update Repository"
	StepStructure    = "Verify Project Structure"
	StepReachability = "Test Remote Reachability"
	StepEnvironment  = "Prepare Remote Environment"
	StepDeploy       = "Deploy Application"
	StepProxy        = "Configure Reverse Proxy"
	StepValidate     = "Validate Deployment"
	StepCleanup      = "Clean Up Remote Resources"
)

// WithDialer replaces how executors are opened
func WithDialer(dial Dialer) Option {
	return func(d *Deployer) { d.dial = dial }
}

// WithSyncer replaces the repository syncer
func WithSyncer(s Syncer) Option {
	return func(d *Deployer) { d.syncer = s }
}

// WithProber replaces the public HTTP probe
func WithProber(p Prober) Option {
	return func(d *Deployer) { d.probe = p }
}

// WithSleeper replaces the grace period wait
func WithSleeper(s Sleeper) Option {
	return func(d *Deployer) { d.sleep = s }
}

// New creates a deployer. Defaults follow cfg: SSH or local transport, go-git
// syncing, the GitHub preflight and a single-attempt HTTP probe.
func New(cfg *config.Config, logger *logging.Logger, collector Collector, opts ...Option) *Deployer {
	d := &Deployer{
		cfg:       cfg,
		logger:    logger,
		runner:    NewRunner(logger),
		collector: collector,
		syncer:    repo.NewSyncer(logger.Output()),
		dial:      dialerFor(cfg.Transport),
		probe:     newHTTPProber(cfg.ProbeTimeout, logger),
		sleep:     sleepContext,
		sites: nginx.Paths{
			SitesAvailable: cfg.NginxSitesAvailable,
			SitesEnabled:   cfg.NginxSitesEnabled,
		},
	}
	if cfg.GitHubPreflight {
		d.preflight = forge.NewPreflight(cfg.GitHubAPIBaseURL, logger.Output())
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy runs the eight deployment steps
func (d *Deployer) Deploy(ctx context.Context) error {
	defer d.closeExecutor()
	return d.runner.Run(ctx, []Step{
		{Name: StepCollect, Code: ExitInvalidInput, Action: d.collect},
		{Name: StepClone, Code: ExitClone, Action: d.cloneOrUpdate},
		{Name: StepStructure, Code: ExitValidation, Action: d.verifyStructure},
		{Name: StepReachability, Code: ExitReachability, Action: d.testReachability},
		{Name: StepEnvironment, Code: ExitDeploy, Action: d.prepareEnvironment},
		{Name: StepDeploy, Code: ExitDeploy, Action: d.deployApplication},
		{Name: StepProxy, Code: ExitProxy, Action: d.configureProxy},
		{Name: StepValidate, Code: ExitValidation, Action: d.validateDeployment},
	})
}

// Cleanup removes everything a deployment created on the target
func (d *Deployer) Cleanup(ctx context.Context) error {
	defer d.closeExecutor()
	return d.runner.Run(ctx, []Step{
		{Name: StepCollect, Code: ExitInvalidInput, Action: d.collect},
		{Name: StepReachability, Code: ExitReachability, Action: d.testReachability},
		{Name: StepCleanup, Code: ExitCleanup, Action: d.cleanupRemote},
	})
}

// CurrentStep names the running step, for the interrupt handler
func (d *Deployer) CurrentStep() string {
	return d.runner.Current()
}

// Results returns the step results of the last run
func (d *Deployer) Results() []StepResult {
	return d.runner.Results()
}

// Report renders the per-step summary of the last run
func (d *Deployer) Report(title string, runErr error) string {
	return d.runner.Report(title, runErr)
}

func (d *Deployer) closeExecutor() {
	if d.exec == nil {
		return
	}
	if err := d.exec.Close(); err != nil {
		d.logger.Debug().Err(err).Msg("Closing remote session")
	}
	d.exec = nil
}

func dialerFor(transport string) Dialer {
	if transport == config.TransportLocal {
		return func(context.Context, remote.Target) (remote.Executor, error) {
			return remote.NewLocal(), nil
		}
	}
	return func(ctx context.Context, target remote.Target) (remote.Executor, error) {
		e, err := remote.Dial(ctx, target)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
