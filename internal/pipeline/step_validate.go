package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vps-deploy/internal/provision"
	"vps-deploy/internal/remote"
)

func (d *Deployer) validateDeployment(ctx context.Context) error {
	checks := []struct {
		what string
		cmd  remote.Command
	}{
		{"docker service", provision.ServiceActive("docker")},
		{"application container", provision.ContainerRunning(d.req.ProjectName)},
		{"nginx service", provision.ServiceActive("nginx")},
	}

	var failures []error
	for _, c := range checks {
		if _, err := d.run(ctx, c.cmd); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures = append(failures, fmt.Errorf("%s: %w", c.what, err))
			continue
		}
		d.logger.Info().Str("check", c.what).Msg("Check passed")
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}

	d.probeOnTarget(ctx, d.req.AppPort)
	d.probeOnTarget(ctx, 80)
	d.probePublic(ctx)
	return nil
}

// probeOnTarget curls a port on the target itself. Failures only warn.
func (d *Deployer) probeOnTarget(ctx context.Context, port int) {
	res, err := d.run(ctx, provision.LocalProbe(port))
	status := strings.TrimSpace(res.Stdout)
	if err != nil || !healthyStatus(status) {
		event := d.logger.Warning().Int("port", port).Str("status", status)
		if err != nil {
			event = event.Err(err)
		}
		event.Msg("Application did not answer on the target")
		return
	}
	d.logger.Info().Int("port", port).Str("status", status).Msg("HTTP check on the target passed")
}

// probePublic requests the site from the controlling machine. Failures only warn.
func (d *Deployer) probePublic(ctx context.Context) {
	url := "http://" + d.req.ServerAddress + "/"
	status, err := d.probe(ctx, url)
	if err != nil {
		d.logger.Warning().Err(err).Str("url", url).Msg("Public HTTP check failed")
		return
	}
	if status >= 400 {
		d.logger.Warning().Int("status", status).Str("url", url).Msg("Public HTTP check returned an error status")
		return
	}
	d.logger.Info().Int("status", status).Str("url", url).Msg("Public HTTP check passed")
}

func healthyStatus(code string) bool {
	return len(code) == 3 && (code[0] == '2' || code[0] == '3')
}
