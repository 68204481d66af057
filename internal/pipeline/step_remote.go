package pipeline

import (
	"context"
	"fmt"

	"vps-deploy/internal/provision"
	"vps-deploy/internal/remote"
)

func (d *Deployer) target() remote.Target {
	return remote.Target{
		User:       d.req.SSHUser,
		Host:       d.req.ServerAddress,
		Port:       d.cfg.SSHPort,
		KeyPath:    d.req.SSHKeyPath,
		Passphrase: d.cfg.SSHKeyPassphrase,
		Timeout:    d.cfg.SSHConnectTimeout,
	}
}

func (d *Deployer) remoteDir() string {
	return provision.ProjectDir(d.cfg.RemoteBaseDir, d.req.ProjectName)
}

func (d *Deployer) testReachability(ctx context.Context) error {
	exec, err := d.dial(ctx, d.target())
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", d.req.SSHTarget(), err)
	}
	d.exec = exec

	if _, err := d.run(ctx, provision.Ping()); err != nil {
		return fmt.Errorf("%s accepted the connection but cannot run commands: %w", d.req.SSHTarget(), err)
	}
	d.logger.Info().
		Str("target", d.req.SSHTarget()).
		Str("transport", d.cfg.Transport).
		Msg("Remote host reachable")
	return nil
}

func (d *Deployer) prepareEnvironment(ctx context.Context) error {
	for _, cmd := range []remote.Command{
		provision.EnsureDocker(),
		provision.EnsureCompose(),
		provision.EnsureNginx(),
	} {
		d.logger.Info().Str("command", cmd.Name).Msg("Checking remote dependency")
		if _, err := d.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deployer) deployApplication(ctx context.Context) error {
	name := d.req.ProjectName
	dir := d.remoteDir()

	d.logger.Info().Str("remote_dir", dir).Msg("Uploading project files")
	if err := d.exec.Upload(ctx, d.localDir, dir); err != nil {
		return fmt.Errorf("upload project: %w", err)
	}

	if _, err := d.run(ctx, provision.StopProjectContainers(name)); err != nil {
		return err
	}

	if d.layout.UsesCompose() {
		d.logger.Info().Str("compose_file", d.layout.ComposeFile).Msg("Starting compose project")
		if err := d.runAll(ctx, provision.ComposeUp(dir)); err != nil {
			return err
		}
	} else {
		d.logger.Info().Str("image", name).Msg("Building and starting container")
		if err := d.runAll(ctx, provision.DockerBuild(dir, name), provision.DockerRun(name, d.req.AppPort)); err != nil {
			return err
		}
	}

	d.logger.Info().Dur("grace_period", d.cfg.GracePeriod).Msg("Waiting for the application to start")
	if err := d.sleep(ctx, d.cfg.GracePeriod); err != nil {
		return err
	}

	if _, err := d.run(ctx, provision.ContainerRunning(name)); err != nil {
		if _, logErr := d.run(ctx, provision.ContainerLogs(name)); logErr != nil {
			d.logger.Warning().Err(logErr).Msg("Could not capture container logs")
		} else {
			d.logger.Warning().Str("log_file", d.logger.Path()).Msg("Container logs captured")
		}
		return fmt.Errorf("application container is not running: %w", err)
	}
	return nil
}

func (d *Deployer) cleanupRemote(ctx context.Context) error {
	name := d.req.ProjectName
	for _, cmd := range []remote.Command{
		provision.StopProjectContainers(name),
		provision.RemoveImages(name),
		provision.RemoveSite(d.sites, name),
		provision.RemoveProjectDir(d.remoteDir()),
	} {
		d.logger.Info().Str("command", cmd.Name).Msg("Removing deployed resources")
		if _, err := d.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}
