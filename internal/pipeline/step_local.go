package pipeline

import (
	"context"
	"path/filepath"

	"vps-deploy/internal/forge"
	"vps-deploy/internal/project"
)

func (d *Deployer) collect(ctx context.Context) error {
	req, err := d.collector.Collect()
	if err != nil {
		return err
	}
	d.req = req
	d.localDir = filepath.Join(d.cfg.WorkDir, req.ProjectName)

	d.logger.Info().
		Str("project", req.ProjectName).
		Str("repository", forge.MaskTokenInURL(req.RepositoryURL)).
		Str("branch", req.Branch).
		Str("target", req.SSHTarget()).
		Int("port", req.AppPort).
		Msg("Deployment request collected")
	return nil
}

func (d *Deployer) cloneOrUpdate(ctx context.Context) error {
	d.checkForge(ctx)

	res, err := d.syncer.Sync(ctx, d.localDir, d.req.RepositoryURL, d.req.Token, d.req.Branch)
	if err != nil {
		return err
	}

	action := "updated"
	if res.Cloned {
		action = "cloned"
	}
	d.logger.Info().
		Str("dir", res.Dir).
		Str("head", res.Head).
		Msgf("Repository %s", action)
	return nil
}

// checkForge asks the GitHub API about the repository before cloning. Its
// verdict is advisory: the clone itself decides.
func (d *Deployer) checkForge(ctx context.Context) {
	if d.preflight == nil || !d.preflight.Applies(d.req.RepositoryURL) {
		return
	}
	info, err := d.preflight.Check(ctx, d.req.RepositoryURL, d.req.Token, d.req.Branch)
	if err != nil {
		d.logger.Warning().Err(err).Msg("GitHub preflight failed, attempting the clone anyway")
		return
	}
	d.logger.Info().
		Str("repository", info.FullName).
		Bool("private", info.Private).
		Str("default_branch", info.DefaultBranch).
		Msg("GitHub repository and branch found")
}

func (d *Deployer) verifyStructure(ctx context.Context) error {
	layout, err := project.Inspect(d.localDir)
	if err != nil {
		return err
	}
	d.layout = layout

	if !layout.UsesCompose() {
		d.logger.Info().Str("build_file", project.DockerfileName).Msg("Dockerfile project detected")
		return nil
	}

	d.logger.Info().
		Str("compose_file", layout.ComposeFile).
		Strs("services", layout.ServiceNames()).
		Msg("Compose project detected")
	if !layout.PublishesPort(d.req.AppPort) {
		d.logger.Warning().
			Int("port", d.req.AppPort).
			Msg("No compose service publishes the application port on the host")
	}
	return nil
}
