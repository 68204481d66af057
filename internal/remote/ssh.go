package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHExecutor runs commands over one SSH connection, a fresh session per command
type SSHExecutor struct {
	client *ssh.Client
	target Target
}

// LoadSigner reads a private key, decrypting it with passphrase when given
func LoadSigner(keyPath, passphrase string) (ssh.Signer, error) {
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	if passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("decrypt ssh key %s: %w", keyPath, err)
		}
		return signer, nil
	}
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("ssh key %s is encrypted, set SSH_KEY_PASSPHRASE", keyPath)
		}
		return nil, fmt.Errorf("parse ssh key %s: %w", keyPath, err)
	}
	return signer, nil
}

// Dial connects to the target with key authentication. Host keys are not
// verified.
func Dial(ctx context.Context, t Target) (*SSHExecutor, error) {
	signer, err := LoadSigner(t.KeyPath, t.Passphrase)
	if err != nil {
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            t.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.Timeout,
	}

	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	dialer := net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	if t.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.Timeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return &SSHExecutor{client: ssh.NewClient(c, chans, reqs), target: t}, nil
}

func (e *SSHExecutor) Run(ctx context.Context, cmd Command) (Result, error) {
	var stdin io.Reader
	if cmd.Stdin != nil {
		stdin = bytes.NewReader(cmd.Stdin)
	}
	return e.stream(ctx, cmd.Name, cmd.Script, stdin)
}

func (e *SSHExecutor) Upload(ctx context.Context, localDir, remoteDir string) error {
	return upload(ctx, e.stream, localDir, remoteDir)
}

func (e *SSHExecutor) Close() error {
	return e.client.Close()
}

func (e *SSHExecutor) stream(ctx context.Context, name, script string, stdin io.Reader) (Result, error) {
	session, err := e.client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("open session for %s: %w", name, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = stdin
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(ShellLine(script))
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return Result{}, ctx.Err()
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitStatus = exitErr.ExitStatus()
		return res, &ExitError{Name: name, Result: res}
	}
	return res, fmt.Errorf("run %s on %s: %w", name, e.target.Host, err)
}
