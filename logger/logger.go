package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global logger instance
	Logger *zap.Logger
)

type options struct {
	file      string
	fileOnly  bool
	maxSizeMB int
}

// Option tweaks Initialize
type Option func(*options)

// WithFile adds a rotated log file at path.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// FileOnly suppresses console output, e.g. while a TUI owns the terminal.
// It has no effect without WithFile.
func FileOnly() Option {
	return func(o *options) { o.fileOnly = true }
}

// Initialize sets up the logger with the specified log level
func Initialize(level string, opts ...Option) error {
	o := options{maxSizeMB: 20}
	for _, opt := range opts {
		opt(&o)
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	atomicLevel := zap.NewAtomicLevelAt(zapLevel)

	var encCfg zapcore.EncoderConfig
	if level == "debug" {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if o.file == "" || !o.fileOnly {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), atomicLevel))
	}
	if o.file != "" {
		if dir := filepath.Dir(o.file); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
		}
		rotated := &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    o.maxSizeMB,
			MaxBackups: 3,
			MaxAge:     14,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotated), atomicLevel))
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	// Replace the global logger
	zap.ReplaceGlobals(Logger)

	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// With returns a child logger carrying fields, or a no-op logger when
// Initialize has not been called.
func With(fields ...zap.Field) *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger.WithOptions(zap.AddCallerSkip(-1)).With(fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Debug(msg, fields...)
	}
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Info(msg, fields...)
	}
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Warn(msg, fields...)
	}
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Error(msg, fields...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	if Logger != nil {
		Logger.Fatal(msg, fields...)
	}
	os.Exit(1)
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	return Logger
}
