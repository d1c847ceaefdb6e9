package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Logger provides structured logging with redaction support
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
	mu      sync.Mutex
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger that writes to w
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		debug:   debug,
		noColor: noColor,
		out:     w,
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("\033[32m✓\033[0m", "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("\033[33m⚠\033[0m", "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("\033[31m✗\033[0m", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("\033[36m[DEBUG]\033[0m", "[DEBUG]", format, args...)
}

// DebugEnabled reports whether Debug messages are written
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

func (l *Logger) emit(colored, plain, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	marker := colored
	if l.noColor {
		marker = plain
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", marker, msg)
}

var (
	setupOnce     sync.Once
	defaultLogger atomic.Pointer[Logger]
)

// Setup installs the process-wide logger. Only the first call has an effect.
func Setup(debug, noColor bool) *Logger {
	setupOnce.Do(func() {
		defaultLogger.Store(New(debug, noColor))
	})
	return Default()
}

// Default returns the process-wide logger, falling back to a plain stderr
// logger when Setup has not run.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return New(false, true)
}

var (
	insecureOnce       sync.Once
	insecureSuppressed atomic.Bool
)

// SuppressInsecureWarnings announces once that TLS verification is disabled
// and silences every later insecure-transport warning in the process.
// Repeated calls are no-ops.
func SuppressInsecureWarnings(l *Logger) {
	insecureOnce.Do(func() {
		if l == nil {
			l = Default()
		}
		l.Warn("TLS certificate verification is disabled for Vault; further insecure-transport warnings are suppressed")
		insecureSuppressed.Store(true)
	})
}

// InsecureWarningsSuppressed reports whether SuppressInsecureWarnings has run
func InsecureWarningsSuppressed() bool {
	return insecureSuppressed.Load()
}

// WarnInsecure logs an insecure-transport warning unless they are suppressed
func (l *Logger) WarnInsecure(format string, args ...interface{}) {
	if InsecureWarningsSuppressed() {
		return
	}
	l.Warn(format, args...)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
