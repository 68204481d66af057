package pipeline

import (
	"context"
	"strings"

	"vps-deploy/internal/remote"
)

// run executes cmd on the open executor and copies its output to the log file
func (d *Deployer) run(ctx context.Context, cmd remote.Command) (remote.Result, error) {
	d.logger.Debug().Str("command", cmd.Name).Msg("Running remote command")
	res, err := d.exec.Run(ctx, cmd)
	d.logOutput(cmd.Name, res)
	return res, err
}

// runAll stops at the first failing command
func (d *Deployer) runAll(ctx context.Context, cmds ...remote.Command) error {
	for _, cmd := range cmds {
		if _, err := d.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deployer) logOutput(name string, res remote.Result) {
	out := d.logger.Output()
	for _, line := range splitLines(res.Stdout) {
		out.Info().Str("command", name).Msg(line)
	}
	for _, line := range splitLines(res.Stderr) {
		out.Warn().Str("command", name).Msg(line)
	}
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
