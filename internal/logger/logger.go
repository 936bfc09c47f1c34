// Package logger is the process-wide charmbracelet/log logger of waycore.
//
// Lines carry the "waycore" prefix. The level starts from LOG_LEVEL and is
// overridden by logging.log_level once the config is loaded. The serve TUI
// owns the terminal, so it silences the logger with SetOutput while it runs.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var Logger *log.Logger

var levels = map[string]log.Level{
	"DEBUG":   log.DebugLevel,
	"INFO":    log.InfoLevel,
	"WARN":    log.WarnLevel,
	"WARNING": log.WarnLevel,
	"ERROR":   log.ErrorLevel,
	"FATAL":   log.FatalLevel,
}

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "waycore",
	})
	_ = SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel sets the level from its name, case-insensitively. An empty name
// selects INFO. An unknown name also selects INFO and is reported.
func SetLevel(name string) error {
	level, ok := levels[strings.ToUpper(name)]
	if !ok {
		Logger.SetLevel(log.InfoLevel)
		if name == "" {
			return nil
		}
		return fmt.Errorf("unknown log level %q", name)
	}
	Logger.SetLevel(level)
	return nil
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// With returns a sub-logger carrying keyvals on every line.
func With(keyvals ...interface{}) *log.Logger {
	return Logger.With(keyvals...)
}

// Convenience functions for common operations
func Info(msg interface{}, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg interface{}, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

func Fatal(msg interface{}, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logger.Fatalf(format, args...)
}
