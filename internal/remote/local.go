package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// LocalExecutor runs commands with the local sh, for deploying onto the
// controlling machine itself.
type LocalExecutor struct{}

// NewLocal creates a local executor
func NewLocal() *LocalExecutor {
	return &LocalExecutor{}
}

func (l *LocalExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	var stdin io.Reader
	if cmd.Stdin != nil {
		stdin = bytes.NewReader(cmd.Stdin)
	}
	return l.stream(ctx, cmd.Name, cmd.Script, stdin)
}

func (l *LocalExecutor) Upload(ctx context.Context, localDir, remoteDir string) error {
	return upload(ctx, l.stream, localDir, remoteDir)
}

func (l *LocalExecutor) Close() error {
	return nil
}

func (l *LocalExecutor) stream(ctx context.Context, name, script string, stdin io.Reader) (Result, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, "sh", "-c", WithPreamble(script))
	c.Stdin = stdin
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitStatus = exitErr.ExitCode()
		return res, &ExitError{Name: name, Result: res}
	}
	return res, fmt.Errorf("run %s: %w", name, err)
}
