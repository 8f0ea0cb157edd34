package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
)

// Logger defines the common logging interface used throughout the application.
// It separates internal (debug) logs, written only to the log file, from
// user-facing messages, which always reach the terminal.
type Logger interface {
	// Info logs an informational message for debugging purposes.
	// The format string follows fmt.Printf style formatting.
	Info(format string, args ...interface{})

	// Warning logs a warning message for debugging purposes.
	// Shown to the user only in verbose mode.
	Warning(format string, args ...interface{})

	// Error logs an error message. Errors are always shown on stderr.
	Error(format string, args ...interface{})

	// InfoToUser logs an informational message intended for users.
	InfoToUser(format string, args ...interface{})

	// WarningToUser logs a warning message intended for users.
	WarningToUser(format string, args ...interface{})

	// Success logs a success message to the user.
	Success(format string, args ...interface{})

	// StatusMessage prints a plain status line to the user (no log file entry).
	StatusMessage(format string, args ...interface{})

	// Close flushes and closes the log file, if any.
	Close() error
}

var (
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
)

// DefaultLogger writes debug records through slog and user lines to the
// terminal writers.
type DefaultLogger struct {
	mu      sync.Mutex
	debug   *slog.Logger
	enabled bool
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
	file    *os.File
}

// New creates a Logger writing user lines to the colour-aware standard streams.
func New(enabled bool, logFile string, verbose bool) Logger {
	return NewWithOutput(enabled, logFile, verbose, color.Output, color.Error)
}

// NewWithOutput creates a DefaultLogger with custom output writers.
//
// With enabled set, debug records are appended to logFile, whose directory is
// created as needed. If the file cannot be opened the records go to stderr.
func NewWithOutput(enabled bool, logFile string, verbose bool, stdout, stderr io.Writer) *DefaultLogger {
	l := &DefaultLogger{
		enabled: enabled,
		verbose: verbose,
		stdout:  stdout,
		stderr:  stderr,
	}

	sink := stderr
	if enabled && logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			_, _ = warningColor.Fprintf(stderr, "⚠️  Debug log unavailable (%v), writing to stderr\n", err)
		} else {
			l.file = f
			sink = f
			_, _ = fmt.Fprintf(stdout, "🔍 Debug log: %s\n", logFile)
		}
	}

	l.debug = slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("pid", os.Getpid())
	if l.file != nil {
		l.debug.Info("gitupdate debug logging started")
	}
	return l
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// userLine describes how a message is shown on the terminal.
type userLine struct {
	out    func(*DefaultLogger) io.Writer
	colour *color.Color
	prefix string
}

var (
	infoLine    = userLine{out: (*DefaultLogger).out, colour: infoColor, prefix: "ℹ️  "}
	warningLine = userLine{out: (*DefaultLogger).out, colour: warningColor, prefix: "⚠️  "}
	successLine = userLine{out: (*DefaultLogger).out, colour: successColor, prefix: "✅ "}
	errorLine   = userLine{out: (*DefaultLogger).errOut, colour: errorColor, prefix: "❌ "}
)

func (l *DefaultLogger) out() io.Writer { return l.stdout }
func (l *DefaultLogger) errOut() io.Writer { return l.stderr }

// emit records msg at level in the debug log and, when line is non-nil,
// shows it on the terminal.
func (l *DefaultLogger) emit(level slog.Level, line *userLine, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.enabled {
		l.debug.Log(context.Background(), level, msg)
	}
	if line != nil {
		_, _ = line.colour.Fprintf(line.out(l), "%s%s\n", line.prefix, msg)
	}
}

// Info logs an informational message (file only)
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.emit(slog.LevelInfo, nil, format, args)
}

// InfoToUser logs an informational message to both file and stdout
func (l *DefaultLogger) InfoToUser(format string, args ...interface{}) {
	l.emit(slog.LevelInfo, &infoLine, format, args)
}

// Success logs a success message to both file and stdout
func (l *DefaultLogger) Success(format string, args ...interface{}) {
	l.emit(slog.LevelInfo, &successLine, format, args)
}

// Warning logs a warning message. It reaches stdout only in verbose mode.
func (l *DefaultLogger) Warning(format string, args ...interface{}) {
	var line *userLine
	if l.verbose {
		line = &warningLine
	}
	l.emit(slog.LevelWarn, line, format, args)
}

// WarningToUser logs a warning message to both file and stdout
func (l *DefaultLogger) WarningToUser(format string, args ...interface{}) {
	l.emit(slog.LevelWarn, &warningLine, format, args)
}

// Error logs an error message and always shows it on stderr.
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.emit(slog.LevelError, &errorLine, format, args)
}

// StatusMessage prints a status message to stdout only (no logging)
func (l *DefaultLogger) StatusMessage(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = fmt.Fprintf(l.stdout, format+"\n", args...)
}

// Close flushes and closes the debug log file. Closing twice is a no-op.
func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	l.enabled = false

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
