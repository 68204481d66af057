package pipeline

import (
	"context"
	"fmt"

	"vps-deploy/internal/nginx"
	"vps-deploy/internal/provision"
)

func (d *Deployer) configureProxy(ctx context.Context) error {
	name := d.req.ProjectName
	site := nginx.Site{Name: name, ServerName: d.req.ServerAddress, Port: d.req.AppPort}
	text, err := site.Render()
	if err != nil {
		return err
	}

	d.logger.Info().Str("site", d.sites.Available(name)).Msg("Writing proxy site")
	if err := d.runAll(ctx,
		provision.WriteSite(d.sites, name, text),
		provision.EnableSite(d.sites, name),
		provision.RemoveDefaultSite(d.sites),
	); err != nil {
		return err
	}

	if _, err := d.run(ctx, provision.NginxTest()); err != nil {
		return fmt.Errorf("nginx rejected the configuration: %w", err)
	}
	if _, err := d.run(ctx, provision.NginxReload()); err != nil {
		return err
	}
	return nil
}
