// Package debug provides conditional debug logging for clusterview.
//
// Debug logging is enabled by setting the CLUSTERVIEW_DEBUG environment
// variable, and CLUSTERVIEW_LOG_FILE additionally appends JSON records to a
// file (useful while the TUI owns the terminal):
//
//	CLUSTERVIEW_DEBUG=1 clusterview --source http://localhost:5000
//	CLUSTERVIEW_LOG_FILE=/tmp/cv.log clusterview
//
// When neither is set all functions are no-ops.
//
// Usage:
//
//	debug.Log("fetching %s", key)
//	defer debug.LogEnterExit("export")()
//	debug.Logger().Info("fetch settled", "generation", gen)
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

const (
	EnvDebug   = "CLUSTERVIEW_DEBUG"
	EnvLogFile = "CLUSTERVIEW_LOG_FILE"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = discard()
	logFile *os.File
)

func init() {
	_ = Setup(Options{
		Stderr:  os.Getenv(EnvDebug) != "",
		LogFile: os.Getenv(EnvLogFile),
	})
}

// Options selects the sinks of the debug logger.
type Options struct {
	// Stderr enables a text handler on Writer (stderr when nil).
	Stderr bool
	Writer io.Writer
	// LogFile appends JSON records to the named file.
	LogFile string
}

// Setup replaces the active sinks. With no sinks logging is disabled.
func Setup(opts Options) error {
	var handlers []slog.Handler
	hopts := &slog.HandlerOptions{Level: slog.LevelDebug}

	if opts.Stderr {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(w, hopts))
	}

	var f *os.File
	if opts.LogFile != "" {
		var err error
		f, err = os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, hopts))
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f

	switch len(handlers) {
	case 0:
		enabled = false
		logger = discard()
	case 1:
		enabled = true
		logger = slog.New(handlers[0])
	default:
		enabled = true
		logger = slog.New(slogmulti.Fanout(handlers...))
	}
	return nil
}

// Close releases the log file, if any, and disables logging.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	logger = discard()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// SetEnabled turns stderr logging on or off.
func SetEnabled(e bool) {
	_ = Setup(Options{Stderr: e})
}

// Logger returns the structured logger. It discards everything when
// logging is disabled.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	Logger().Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogTiming writes a timing message.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	Logger().Debug("timing", "name", name, "duration", d)
}

// LogEnterExit logs function entry and exit with timing.
//
//	defer debug.LogEnterExit("export")()
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	Logger().Debug("-> " + name)
	start := time.Now()
	return func() {
		Logger().Debug("<- "+name, "duration", time.Since(start))
	}
}

// Dump logs a value with its type.
func Dump(name string, v any) {
	if !Enabled() {
		return
	}
	Log("%s: %T = %+v", name, v, v)
}
