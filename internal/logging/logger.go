// Package logging provides the leveled console logger shared by every
// command. Lines look like "2006-01-02 15:04:05 [LEVEL] text"; ERROR goes to
// stderr, everything else to stdout, and an optional log file receives the
// same lines without color.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/backmassage/spacesaver/internal/config"
	"github.com/backmassage/spacesaver/internal/term"
)

// sinks are the destinations shared by a Logger and its With children.
type sinks struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	file   io.WriteCloser
	color  *Formatter
	plain  *Formatter
}

// Levels implements logrus.Hook.
func (s *sinks) Levels() []logrus.Level { return logrus.AllLevels }

// Fire implements logrus.Hook.
func (s *sinks) Fire(entry *logrus.Entry) error {
	plain, err := s.plain.Format(entry)
	if err != nil {
		return err
	}
	console := plain
	if s.color.Color {
		if console, err = s.color.Format(entry); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stdout
	if entry.Level <= logrus.ErrorLevel {
		out = s.stderr
	}
	_, _ = out.Write(console)
	if s.file != nil {
		_, _ = s.file.Write(plain)
	}
	return nil
}

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	entry *logrus.Entry
	out   *sinks
}

// NewLogger configures colors from cfg and optionally opens cfg.LogFile for
// appending. Call Close() when done if LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	var file io.WriteCloser
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		file = f
	}
	return New(os.Stdout, os.Stderr, term.Enabled(), file), nil
}

// New builds a Logger over explicit writers. file may be nil; it is closed
// by Close.
func New(stdout, stderr io.Writer, color bool, file io.WriteCloser) *Logger {
	s := &sinks{
		stdout: stdout,
		stderr: stderr,
		file:   file,
		color:  &Formatter{Color: color},
		plain:  &Formatter{},
	}
	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.DebugLevel)
	base.AddHook(s)
	return &Logger{entry: logrus.NewEntry(base), out: s}
}

// Discard returns a Logger that writes nowhere.
func Discard() *Logger { return New(io.Discard, io.Discard, false, nil) }

// With returns a child logger that appends key=value to every line.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), out: l.out}
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file != nil {
		err := l.out.file.Close()
		l.out.file = nil
		return err
	}
	return nil
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green). It is INFO with a distinct label.
func (l *Logger) Success(format string, args ...interface{}) {
	l.entry.WithField(LabelKey, "SUCCESS").Info(fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.entry.Debug(fmt.Sprintf(format, args...))
}
