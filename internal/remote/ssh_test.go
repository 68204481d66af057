package remote

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// generateKey creates an RSA key and writes it PEM encoded to a 0600 file,
// optionally encrypted.
func generateKey(t *testing.T, passphrase string) (string, ssh.PublicKey) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var block *pem.Block
	if passphrase == "" {
		block = &pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
		}
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(privateKey, "deploy", []byte(passphrase))
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	return path, publicKey
}

// startServer runs an SSH server on loopback that executes exec requests with
// the local sh and accepts only the given key.
func startServer(t *testing.T, authorized ssh.PublicKey) (string, int) {
	t.Helper()
	hostKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown key")
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config)
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func serveConn(conn net.Conn, config *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go serveSession(ch, requests)
	}
}

func serveSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()
	for req := range requests {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		cmd := exec.Command("sh", "-c", payload.Command)
		cmd.Stdin = ch
		cmd.Stdout = ch
		cmd.Stderr = ch.Stderr()
		status := 0
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				status = exitErr.ExitCode()
			} else {
				status = 127
			}
		}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
		return
	}
}

func dialTest(t *testing.T, passphrase string) *SSHExecutor {
	t.Helper()
	keyPath, publicKey := generateKey(t, passphrase)
	host, port := startServer(t, publicKey)

	e, err := Dial(context.Background(), Target{
		User:       "deploy",
		Host:       host,
		Port:       port,
		KeyPath:    keyPath,
		Passphrase: passphrase,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestSSHRun(t *testing.T) {
	e := dialTest(t, "")

	res, err := e.Run(context.Background(), Command{Name: "ping", Script: "true"})
	require.NoError(t, err)
	require.Zero(t, res.ExitStatus)

	res, err = e.Run(context.Background(), Command{Name: "echo", Script: "echo out\necho err >&2"})
	require.NoError(t, err)
	require.Equal(t, "out\n", res.Stdout)
	require.Equal(t, "err\n", res.Stderr)

	res, err = e.Run(context.Background(), Command{Name: "tee", Script: "cat", Stdin: []byte("site\n")})
	require.NoError(t, err)
	require.Equal(t, "site\n", res.Stdout)

	_, err = e.Run(context.Background(), Command{Name: "fail", Script: "exit 4"})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 4, exitErr.Result.ExitStatus)
	require.Equal(t, "fail", exitErr.Name)
}

func TestSSHUpload(t *testing.T) {
	e := dialTest(t, "")
	dst := filepath.Join(t.TempDir(), "webapp")

	require.NoError(t, e.Upload(context.Background(), projectTree(t), dst))
	require.FileExists(t, filepath.Join(dst, "Dockerfile"))
	require.FileExists(t, filepath.Join(dst, "vendor", "lib", "module.txt"))
	require.NoDirExists(t, filepath.Join(dst, ".git"))
}

func TestSSHEncryptedKey(t *testing.T) {
	e := dialTest(t, "hunter2")
	_, err := e.Run(context.Background(), Command{Name: "ping", Script: "true"})
	require.NoError(t, err)
}

func TestLoadSignerEncryptedWithoutPassphrase(t *testing.T) {
	keyPath, _ := generateKey(t, "hunter2")
	_, err := LoadSigner(keyPath, "")
	require.ErrorContains(t, err, "SSH_KEY_PASSPHRASE")
}

func TestDialFailures(t *testing.T) {
	keyPath, publicKey := generateKey(t, "")
	host, port := startServer(t, publicKey)

	t.Run("wrong key", func(t *testing.T) {
		otherKey, _ := generateKey(t, "")
		_, err := Dial(context.Background(), Target{User: "deploy", Host: host, Port: port, KeyPath: otherKey, Timeout: 5 * time.Second})
		require.ErrorContains(t, err, "ssh handshake")
	})

	t.Run("nothing listening", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().(*net.TCPAddr)
		ln.Close()
		_, err = Dial(context.Background(), Target{User: "deploy", Host: "127.0.0.1", Port: addr.Port, KeyPath: keyPath, Timeout: time.Second})
		require.ErrorContains(t, err, "connect to")
	})

	t.Run("missing key file", func(t *testing.T) {
		_, err := Dial(context.Background(), Target{User: "deploy", Host: host, Port: port, KeyPath: "/nonexistent", Timeout: time.Second})
		require.ErrorContains(t, err, "read ssh key")
	})
}
