// Package logging provides the run logger: every record goes to the console
// with a colored severity tag and to an append-only file named after the
// run's start time.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	fileTimeLayout = "20060102_150405"
	lineTimeLayout = "2006-01-02 15:04:05"

	// SuccessLevel is the level field value of success records.
	SuccessLevel = "success"
)

var tags = map[string]string{
	"trace":      "TRACE",
	"debug":      "DEBUG",
	"info":       "INFO",
	SuccessLevel: "SUCCESS",
	"warn":       "WARNING",
	"error":      "ERROR",
	"fatal":      "ERROR",
	"panic":      "ERROR",
}

var styles = map[string]lipgloss.Style{
	"debug":      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	"info":       lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	SuccessLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	"warn":       lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	"error":      lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

// Logger writes severity-tagged records to the console and the run log file.
type Logger struct {
	zl   zerolog.Logger
	file zerolog.Logger
	f    *os.File
	path string
}

// FileName returns the log file name for a run started at start.
func FileName(start time.Time) string {
	return "deploy_" + start.Format(fileTimeLayout) + ".log"
}

// New opens (or appends to) the run log file in dir and returns a logger
// writing to both console and file.
func New(dir string, start time.Time, console io.Writer, level zerolog.Level) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, FileName(start))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	colored := isTerminal(console)
	consoleWriter := zerolog.ConsoleWriter{
		Out:         console,
		NoColor:     !colored,
		TimeFormat:  lineTimeLayout,
		FormatLevel: formatLevel(colored),
	}
	fileWriter := zerolog.ConsoleWriter{
		Out:         f,
		NoColor:     true,
		TimeFormat:  lineTimeLayout,
		FormatLevel: formatLevel(false),
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(consoleWriter, fileWriter)).
		Level(level).
		With().Timestamp().Logger()
	file := zerolog.New(fileWriter).
		Level(level).
		With().Timestamp().Logger()

	return &Logger{zl: zl, file: file, f: f, path: path}, nil
}

// Path returns the path of the run log file.
func (l *Logger) Path() string {
	return l.path
}

// With returns a logger that adds key=value to every record.
func (l *Logger) With(key, value string) *Logger {
	scoped := *l
	scoped.zl = l.zl.With().Str(key, value).Logger()
	scoped.file = l.file.With().Str(key, value).Logger()
	return &scoped
}

// Zerolog exposes the console+file logger for packages taking a zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug() *zerolog.Event {
	return l.zl.Debug()
}

func (l *Logger) Info() *zerolog.Event {
	return l.zl.Info()
}

// Success starts a SUCCESS record. zerolog has no such level, so the event
// is level-less and carries the level field explicitly.
func (l *Logger) Success() *zerolog.Event {
	return l.zl.Log().Str(zerolog.LevelFieldName, SuccessLevel)
}

func (l *Logger) Warning() *zerolog.Event {
	return l.zl.Warn()
}

func (l *Logger) Error() *zerolog.Event {
	return l.zl.Error()
}

// Output returns a logger writing to the log file only, used for captured
// command output that would flood the console.
func (l *Logger) Output() zerolog.Logger {
	return l.file
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.f == nil {
		return nil
	}
	if err := l.f.Sync(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}

func formatLevel(colored bool) zerolog.Formatter {
	return func(i interface{}) string {
		name, _ := i.(string)
		tag, ok := tags[name]
		if !ok {
			tag = strings.ToUpper(name)
		}
		text := "[" + tag + "]"
		if !colored {
			return text
		}
		if style, ok := styles[name]; ok {
			return style.Render(text)
		}
		return text
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
