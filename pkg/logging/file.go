package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
	// Compress gzips rotated backups (<path>.N.gz)
	Compress bool
}

// fileSink is the open log file shared by a logger and its WithFields children
type fileSink struct {
	mu          sync.Mutex
	file        *os.File
	currentSize int64
}

// FileLogger implements Logger interface with file output
type FileLogger struct {
	config FileLoggerConfig
	sink   *fileSink
	fields Fields
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &FileLogger{
		config: config,
		sink:   &fileSink{file: file, currentSize: info.Size()},
	}, nil
}

// Debug logs a debug message
func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	if l.config.Level <= DebugLevel {
		l.log(DebugLevel, msg, nil, fields)
	}
}

// Info logs an info message
func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	if l.config.Level <= InfoLevel {
		l.log(InfoLevel, msg, nil, fields)
	}
}

// Warn logs a warning message
func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	if l.config.Level <= WarnLevel {
		l.log(WarnLevel, msg, nil, fields)
	}
}

// Error logs an error message
func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	if l.config.Level <= ErrorLevel {
		l.log(ErrorLevel, msg, err, fields)
	}
}

// WithFields returns a logger with additional fields writing to the same file
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{
		config: l.config,
		sink:   l.sink,
		fields: mergeFields(l.fields, fields),
	}
}

// Close flushes and closes the logger
func (l *FileLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file != nil {
		err := l.sink.file.Close()
		l.sink.file = nil
		return err
	}
	return nil
}

// log writes a log entry
func (l *FileLogger) log(level Level, msg string, err error, fields Fields) {
	allFields := mergeFields(l.fields, fields)

	var line []byte
	var formatErr error
	if l.config.Format == FormatJSON {
		line, formatErr = formatJSON(level, msg, err, allFields)
	} else {
		line, formatErr = formatText(level, msg, err, allFields)
	}
	if formatErr != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.file == nil {
		return
	}
	if l.config.MaxSize > 0 && l.sink.currentSize >= l.config.MaxSize {
		l.rotate()
		if l.sink.file == nil {
			return
		}
	}

	n, _ := l.sink.file.Write(line)
	l.sink.currentSize += int64(n)
}

func mergeFields(base, extra Fields) Fields {
	merged := make(Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// formatJSON formats a log entry as JSON
func formatJSON(level Level, msg string, err error, fields Fields) ([]byte, error) {
	entry := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"level":     levelString(level),
		"message":   msg,
	}

	if err != nil {
		entry["error"] = err.Error()
	}

	for k, v := range fields {
		entry[k] = v
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil, jsonErr
	}

	return append(data, '\n'), nil
}

// formatText formats a log entry as plain text with fields in key order
func formatText(level Level, msg string, err error, fields Fields) ([]byte, error) {
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintf(&b, " [%s] %s", levelString(level), msg)

	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// backupPath returns the name of the n-th rotated backup
func (l *FileLogger) backupPath(n int) string {
	if l.config.Compress {
		return fmt.Sprintf("%s.%d.gz", l.config.Path, n)
	}
	return fmt.Sprintf("%s.%d", l.config.Path, n)
}

// rotate must be called with the sink lock held
func (l *FileLogger) rotate() {
	l.sink.file.Close()
	l.sink.file = nil

	if l.config.MaxBackups > 0 {
		os.Remove(l.backupPath(l.config.MaxBackups))
		for i := l.config.MaxBackups - 1; i >= 1; i-- {
			os.Rename(l.backupPath(i), l.backupPath(i+1))
		}

		if l.config.Compress {
			if err := compressFile(l.config.Path, l.backupPath(1)); err == nil {
				os.Remove(l.config.Path)
			}
		} else {
			os.Rename(l.config.Path, l.backupPath(1))
		}
	}

	// O_TRUNC also covers MaxBackups == 0 and a failed compression
	file, err := os.OpenFile(l.config.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return
	}

	l.sink.file = file
	l.sink.currentSize = 0
}

// compressFile writes a gzip copy of src to dst
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(src)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// levelString returns the string representation of a log level
func levelString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// LevelString returns level as string (exported version)
func LevelString(level Level) string {
	return levelString(level)
}

// DefaultFilePath returns the per-run log file name, logs/download_<root>_<stamp>.log
func DefaultFilePath(dir, rootID string, started time.Time) string {
	if dir == "" {
		dir = "logs"
	}
	name := fmt.Sprintf("download_%s_%s.log", rootID, started.Format("20060102_150405"))
	return filepath.Join(dir, name)
}
