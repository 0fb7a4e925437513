// Package log provides the logging utilities shared by the runtime.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level names accepted by SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Default is the process-wide logger. Replace it with any implementation of
// Logger to route runtime output elsewhere.
var Default Logger = zap.New(
	zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		zapLevel,
	),
	zap.AddCaller(),
	zap.AddCallerSkip(1),
).Sugar()

// Logger is the minimal logging surface used by the runtime packages.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
}

// SetLevel adjusts the level of the default logger. Unknown names fall back
// to info.
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Debug logs to the default logger at debug level.
func Debug(args ...any) { Default.Debug(args...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }

// Info logs to the default logger at info level.
func Info(args ...any) { Default.Info(args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { Default.Infof(format, args...) }

// Warn logs to the default logger at warn level.
func Warn(args ...any) { Default.Warn(args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { Default.Warnf(format, args...) }

// Error logs to the default logger at error level.
func Error(args ...any) { Default.Error(args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }
