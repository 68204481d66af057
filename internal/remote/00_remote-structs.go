package remote

import (
	"context"
	"time"
)

// Command is one named shell script run on the target
type Command struct {
	// Name identifies the command in logs and errors
	Name   string
	Script string
	// Stdin is fed to the script when non-nil
	Stdin []byte
}

// Result is the captured outcome of a command
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Executor runs commands on a deployment target
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	// Upload copies the tree at localDir into remoteDir, a shell path expression
	// that is expanded on the target ("$HOME/app" works).
	Upload(ctx context.Context, localDir, remoteDir string) error
	Close() error
}

// Target identifies the SSH endpoint and credentials
type Target struct {
	User       string
	Host       string
	Port       int
	KeyPath    string
	Passphrase string
	Timeout    time.Duration
}

// ExitError is returned when a command exits with a non-zero status
type ExitError struct {
	Name   string
	Result Result
}
