package logging

import (
	"context"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapConfig configures the console logger
type ZapConfig struct {
	Level  Level
	Format string    // "console" or "json"
	Output io.Writer // defaults to stderr
}

// ZapLogger implements Logger on top of zap
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a console logger
func NewZapLogger(cfg ZapConfig) *ZapLogger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zapLevel(cfg.Level))
	return &ZapLogger{logger: zap.New(core)}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapFields converts fields in key order so output is stable
func zapFields(fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// Debug logs a debug message
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.logger.Debug(msg, zapFields(fields)...)
}

// Info logs an info message
func (l *ZapLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.logger.Info(msg, zapFields(fields)...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.logger.Warn(msg, zapFields(fields)...)
}

// Error logs an error message
func (l *ZapLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.logger.Error(msg, zf...)
}

// WithFields returns a logger with additional fields
func (l *ZapLogger) WithFields(fields Fields) Logger {
	return &ZapLogger{logger: l.logger.With(zapFields(fields)...)}
}

// Close flushes buffered entries
func (l *ZapLogger) Close() error {
	// stderr and stdout return EINVAL on Sync for some terminals
	l.logger.Sync()
	return nil
}
