package input

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vps-deploy/internal/logging"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.New(t.TempDir(), time.Now(), &bytes.Buffer{}, zerolog.DebugLevel)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func writeKey(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, []byte("not really a key"), 0644))
	return path
}

func TestURLValidation(t *testing.T) {
	v := NewValidator()
	for _, ok := range []string{
		"https://github.com/acme/webapp.git",
		"http://git.internal/team/app",
		"https://gitlab.com/group/sub/app.git",
	} {
		require.NoError(t, v.URL(ok), ok)
	}
	for _, bad := range []string{
		"",
		"github.com/acme/webapp",
		"ftp://example.com/repo.git",
		"git@github.com:acme/webapp.git",
		"https://",
		"https://github.com/acme/web app",
	} {
		require.Error(t, v.URL(bad), bad)
	}
}

func TestAddressValidationAcceptsShapeOnly(t *testing.T) {
	v := NewValidator()
	for _, ok := range []string{"203.0.113.10", "0.0.0.0", "999.999.999.999", "1.2.3.4"} {
		require.NoError(t, v.Address(ok), ok)
	}
	for _, bad := range []string{"", "1.2.3", "1.2.3.4.5", "a.b.c.d", "1234.1.1.1", "example.com", " 1.2.3.4"} {
		require.Error(t, v.Address(bad), bad)
	}
}

func TestPortValidation(t *testing.T) {
	v := NewValidator()
	for _, tt := range []struct {
		in   string
		want int
	}{{"1", 1}, {"80", 80}, {"3000", 3000}, {"65535", 65535}} {
		port, err := v.Port(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, port)
	}
	for _, bad := range []string{"", "0", "65536", "-1", "+80", "80.0", "http", "99999999999999999999"} {
		_, err := v.Port(bad)
		require.Error(t, err, bad)
	}
}

func TestProjectNameValidation(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.ProjectName("webapp"))
	require.NoError(t, v.ProjectName("site.v2_api-1"))
	for _, bad := range []string{"", ".", "..", "web app", "web;rm", "a/b", "WebApp", ".dotfiles", "-x", "_x"} {
		require.Error(t, v.ProjectName(bad), bad)
	}
}

func TestCollectRepromptsUntilValid(t *testing.T) {
	key := writeKey(t)
	answers := strings.Join([]string{
		"not-a-url",
		"ftp://example.com/x.git",
		"https://github.com/acme/webapp.git",
		"s3cr3t",
		"",
		"deploy",
		"203.0.113",
		"203.0.113.10",
		key,
		"0",
		"abc",
		"3000",
	}, "\n") + "\n"

	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(answers), &out, NewValidator(), newTestLogger(t), "main")
	req, err := p.Collect()
	require.NoError(t, err)

	require.Equal(t, "https://github.com/acme/webapp.git", req.RepositoryURL)
	require.Equal(t, "webapp", req.ProjectName)
	require.Equal(t, "s3cr3t", req.Token)
	require.Equal(t, "main", req.Branch)
	require.Equal(t, "deploy", req.SSHUser)
	require.Equal(t, "203.0.113.10", req.ServerAddress)
	require.Equal(t, key, req.SSHKeyPath)
	require.Equal(t, 3000, req.AppPort)

	require.Equal(t, 3, strings.Count(out.String(), "Enter repository URL: "))
	require.Equal(t, 2, strings.Count(out.String(), "Enter server IP address: "))
	require.Equal(t, 3, strings.Count(out.String(), "Enter application port: "))

	info, err := os.Stat(key)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestCollectFailsFast(t *testing.T) {
	key := writeKey(t)
	tests := []struct {
		name    string
		answers []string
	}{
		{"empty token", []string{"https://github.com/acme/webapp.git", ""}},
		{"empty username", []string{"https://github.com/acme/webapp.git", "tok", "main", ""}},
		{"missing key", []string{"https://github.com/acme/webapp.git", "tok", "main", "deploy", "1.2.3.4", "/nonexistent/key"}},
		{"key is a directory", []string{"https://github.com/acme/webapp.git", "tok", "main", "deploy", "1.2.3.4", filepath.Dir(key)}},
		{"input ends while re-prompting", []string{"https://github.com/acme/webapp.git", "tok", "main", "deploy", "1.2.3.4", key, "0"}},
		{"no input at all", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.Join(tt.answers, "\n")
			if in != "" {
				in += "\n"
			}
			logger := newTestLogger(t)
			p := NewPrompter(strings.NewReader(in), &bytes.Buffer{}, NewValidator(), logger, "main")
			_, err := p.Collect()
			require.ErrorIs(t, err, ErrInvalidInput)

			// The caller logs the single ERROR line for the failed run.
			data, err := os.ReadFile(logger.Path())
			require.NoError(t, err)
			require.NotContains(t, string(data), "[ERROR]")
		})
	}
}

func TestCollectDerivesDockerSafeProjectName(t *testing.T) {
	key := writeKey(t)
	in := strings.Join([]string{
		"https://github.com/acme/.dotfiles.git",
		"https://github.com/acme/WebApp.git",
		"tok", "", "deploy", "203.0.113.10", key, "3000",
	}, "\n") + "\n"
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(in), &out, NewValidator(), newTestLogger(t), "main")
	req, err := p.Collect()
	require.NoError(t, err)
	require.Equal(t, "https://github.com/acme/WebApp.git", req.RepositoryURL)
	require.Equal(t, "webapp", req.ProjectName)
	require.Equal(t, 2, strings.Count(out.String(), "Enter repository URL: "))
}

func TestCollectCustomBranch(t *testing.T) {
	key := writeKey(t)
	in := strings.Join([]string{
		"https://gitlab.com/group/api.git", "tok", "release/1.x", "root", "10.0.0.5", key, "8080",
	}, "\n")
	p := NewPrompter(strings.NewReader(in), &bytes.Buffer{}, NewValidator(), newTestLogger(t), "main")
	req, err := p.Collect()
	require.NoError(t, err)
	require.Equal(t, "release/1.x", req.Branch)
	require.Equal(t, "api", req.ProjectName)
	require.Equal(t, 8080, req.AppPort)
}

func TestPrepareKeyFileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.Reset()
	t.Cleanup(homedir.Reset)
	require.NoError(t, os.WriteFile(filepath.Join(home, "key"), []byte("k"), 0644))

	path, err := PrepareKeyFile("~/key")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "key"), path)
}

func TestSaveTerminalOnPlainFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	restore := SaveTerminal(f)
	require.NotNil(t, restore)
	require.NotPanics(t, restore)
}
