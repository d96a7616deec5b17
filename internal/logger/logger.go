// Package logger provides leveled logging for the ecaudit CLI.
// Messages go through a zerolog logger writing to stderr. Quiet by default,
// only warnings and errors are printed; the --verbose flag lowers the level
// to debug so users can follow resolution and each audit stage.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = "console"
	level             = zerolog.WarnLevel
	base              = build()
)

// build creates the underlying logger (caller must hold lock).
func build() zerolog.Logger {
	w := output
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:          output,
			NoColor:      true,
			PartsExclude: []string{zerolog.TimestampFieldName},
		}
	}
	lvl := level
	if verbose {
		lvl = zerolog.DebugLevel
	}
	l := zerolog.New(w).Level(lvl)
	if format == "json" {
		l = l.With().Timestamp().Logger()
	}
	return l
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build()
}

// SetFormat selects "console" or "json" rendering.
func SetFormat(f string) error {
	f = strings.ToLower(strings.TrimSpace(f))
	if f != "console" && f != "json" {
		return fmt.Errorf("unknown log format %q", f)
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	base = build()
	return nil
}

// SetLevel sets the minimum level used when not verbose.
func SetLevel(l string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(l)))
	if err != nil {
		return err
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.WarnLevel
	}
	mu.Lock()
	defer mu.Unlock()
	level = parsed
	base = build()
	return nil
}

// With returns a child logger tagged with a component name.
// The child is bound to the current output and level.
func With(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

// Debug prints a debug message.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Debug().Msgf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		base.Info().Str("section", name).Msg("===")
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Info().Msgf(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Warn().Msgf(format, args...)
}

// Error prints an error message. Errors are never suppressed.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Error().Msgf(format, args...)
}
