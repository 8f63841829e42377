// Package otlog provides the structured logger every subsystem of the
// server logs through: a console encoder for interactive use, tee'd with
// a rotated JSON file sink once a log file is configured.
package otlog

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a sugared zap logger so call sites can use key/value
// pairs (Infow, Errorw, ...) without importing zap directly.
type Logger struct {
	base *zap.Logger
	*zap.SugaredLogger
}

// New builds a Logger at the given level ("debug", "info", "warn",
// "error"; defaults to "info" on anything else). When file is non-empty,
// JSON-encoded records are also written there with rotation; stderr
// always gets a human-readable console encoding.
func New(level, file string) (*Logger, error) {
	zapLevel := parseLevel(level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stderr),
		zapLevel,
	)

	cores := []zapcore.Core{consoleCore}
	if file != "" {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   file,
				MaxSize:    100,
				MaxBackups: 5,
				MaxAge:     7,
				Compress:   true,
			}),
			zapLevel,
		)
		cores = append(cores, fileCore)
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return &Logger{base: base, SugaredLogger: base.Sugar()}, nil
}

// Nop returns a Logger that discards everything, for tests that don't
// want log noise.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{base: base, SugaredLogger: base.Sugar()}
}

// Sync flushes any buffered log entries; callers should defer it from main.
func (l *Logger) Sync() error {
	if err := l.base.Sync(); err != nil && !isIgnorableSyncError(err) {
		return fmt.Errorf("flushing logger: %w", err)
	}
	return nil
}

// isIgnorableSyncError filters the "inappropriate ioctl" class of error
// zap.Sync returns on stderr/stdout for terminals and CI runners that
// won't fsync.
func isIgnorableSyncError(err error) bool {
	return strings.Contains(err.Error(), "inappropriate ioctl") ||
		strings.Contains(err.Error(), "invalid argument")
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
