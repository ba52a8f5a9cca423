// Package logger provides a small key/value logging facade over zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)

// Init replaces the global logger. format is "json" or "console"; level is one of
// debug, info, warn or error and falls back to info.
func Init(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// Error logs an error message.
func Error(msg string, args ...any) {
	emit(Logger.Error(), msg, args)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	emit(Logger.Info(), msg, args)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	emit(Logger.Warn(), msg, args)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	emit(Logger.Debug(), msg, args)
}

// emit attaches alternating key/value args. A dangling key is logged under "!BADKEY".
func emit(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	if len(args)%2 == 1 {
		args = append(args[:len(args)-1:len(args)-1], "!BADKEY", args[len(args)-1])
	}
	if len(args) > 0 {
		e = e.Fields(args)
	}
	e.Msg(msg)
}
