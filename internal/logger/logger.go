package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxAgeDays = 14
	logFileMaxBackups = 5
)

var log *slog.Logger
var logLevel slog.Level

// logFile is the rotating LOG_FILE writer, nil when LOG_FILE is unset.
var logFile io.Writer

func init() {
	logLevel = ParseLevel(os.Getenv("LOG_LEVEL"))

	if path := os.Getenv("LOG_FILE"); path != "" {
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logFileMaxSizeMB,
			MaxAge:     logFileMaxAgeDays,
			MaxBackups: logFileMaxBackups,
			Compress:   true,
			LocalTime:  true,
		}
	}

	SetOutput(os.Stdout)
}

// SetOutput sends log lines to w, plus LOG_FILE when set. Commands that print
// results on stdout point this at stderr.
func SetOutput(w io.Writer) {
	if logFile != nil {
		w = io.MultiWriter(w, logFile)
	}
	log = newLogger(w)
	slog.SetDefault(log)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a slog level.
// Anything else yields info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return logLevel == slog.LevelDebug
}

// SetDebugForTest toggles IsDebug for tests. The handler level is unchanged.
// Returns a cleanup function that restores the original state.
func SetDebugForTest(enabled bool) func() {
	original := logLevel
	if enabled {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}
	return func() {
		logLevel = original
	}
}

// Debug logs a debug message with structured fields
func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

// Info logs an informational message with structured fields
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error logs an error message with structured fields
func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

// Fatal logs an error message and exits with status 1
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// SetOutputForTest redirects log output to w at debug level.
// Returns a cleanup function that restores the original logger.
func SetOutputForTest(w io.Writer) func() {
	original := log
	originalLevel := logLevel
	logLevel = slog.LevelDebug
	log = newLogger(w)
	slog.SetDefault(log)
	return func() {
		logLevel = originalLevel
		log = original
		slog.SetDefault(log)
	}
}
