package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Default logger instance
	defaultLogger *zap.Logger
)

// ParseLevel maps a LOG_LEVEL style string onto a zap level.
// Unknown or empty values fall back to warn.
func ParseLevel(raw string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(raw)))); err != nil || raw == "" {
		return zapcore.WarnLevel
	}
	return level
}

// InitLogger initializes the default logger. An empty level defers to
// the LOG_LEVEL environment variable.
func InitLogger(level string) error {
	config := zap.NewProductionConfig()

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	// stdout carries command output only
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := config.Build()
	if err != nil {
		return err
	}
	defaultLogger = logger

	zap.ReplaceGlobals(defaultLogger)
	return nil
}

// Logger returns the default logger instance
func Logger() *zap.Logger {
	if defaultLogger == nil {
		// Not initialized (tests, library use): stay quiet.
		defaultLogger = zap.NewNop()
	}
	return defaultLogger
}

// Sync flushes any buffered log entries
func Sync() error {
	if defaultLogger != nil {
		if err := defaultLogger.Sync(); err != nil {
			// Sync on a terminal stderr commonly fails with EINVAL/ENOTTY.
			if isIgnorableSyncError(err) {
				return nil
			}
			return err
		}
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
