package remote

import (
	"fmt"
	"strings"
)

// preamble runs before every script. SUDO expands to nothing for root and to
// a non-interactive sudo otherwise.
const preamble = `set -e
SUDO=""
if [ "$(id -u)" -ne 0 ]; then SUDO="sudo -n"; fi
`

// Quote wraps s in single quotes for sh
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// WithPreamble returns script prefixed by the shared preamble
func WithPreamble(script string) string {
	return preamble + script
}

// ShellLine is the single command line sent to an SSH session
func ShellLine(script string) string {
	return "sh -c " + Quote(WithPreamble(script))
}

// UploadScript unpacks a gzip tar stream from stdin into dir
func UploadScript(dir string) string {
	return fmt.Sprintf("mkdir -p \"%s\"\ntar -xzf - -C \"%s\"\n", dir, dir)
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %s exited with status %d", e.Name, e.Result.ExitStatus)
	if last := lastLine(e.Result.Stderr); last != "" {
		msg += ": " + last
	}
	return msg
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
