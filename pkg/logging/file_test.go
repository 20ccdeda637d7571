package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func newTestFileLogger(t *testing.T, config FileLoggerConfig) (*FileLogger, string) {
	t.Helper()
	if config.Path == "" {
		config.Path = filepath.Join(t.TempDir(), "drivesync.log")
	}
	logger, err := NewFileLogger(config)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	return logger, config.Path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

// ============== File Logger Tests ==============

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "nested", "run.log")
	logger, _ := newTestFileLogger(t, FileLoggerConfig{Path: logPath, Format: FormatText, Level: InfoLevel})
	defer logger.Close()

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("Log file was not created: %v", err)
	}
}

func TestFileLogger_LogLevels(t *testing.T) {
	tests := []struct {
		level   Level
		present []string
		absent  []string
	}{
		{DebugLevel, []string{"debug message", "info message", "error message"}, nil},
		{InfoLevel, []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{ErrorLevel, []string{"error message"}, []string{"info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(LevelString(tt.level), func(t *testing.T) {
			logger, path := newTestFileLogger(t, FileLoggerConfig{Format: FormatText, Level: tt.level})
			ctx := context.Background()
			logger.Debug(ctx, "debug message", nil)
			logger.Info(ctx, "info message", nil)
			logger.Warn(ctx, "warn message", nil)
			logger.Error(ctx, "error message", nil, nil)
			logger.Close()

			content := readLog(t, path)
			for _, s := range tt.present {
				if !strings.Contains(content, s) {
					t.Errorf("%q should be logged", s)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(content, s) {
					t.Errorf("%q should be filtered", s)
				}
			}
		})
	}
}

func TestFileLogger_TextFormat(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{Format: FormatText, Level: InfoLevel})
	logger.Info(context.Background(), "Downloading", Fields{"path": "sub/b.txt", "id": "f2"})
	logger.Close()

	content := readLog(t, path)
	if !strings.Contains(content, "[INFO] Downloading id=f2 path=sub/b.txt") {
		t.Errorf("unexpected text line: %s", content)
	}
}

func TestFileLogger_JSONFormat(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{Format: FormatJSON, Level: InfoLevel})
	logger.Error(context.Background(), "fetch failed", errors.New("connection reset"), Fields{"id": "f1"})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, path)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	want := map[string]string{"level": "ERROR", "message": "fetch failed", "error": "connection reset", "id": "f1"}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp should be present")
	}
}

func TestFileLogger_WithFields(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{Format: FormatJSON, Level: InfoLevel})

	runLogger := logger.WithFields(Fields{"run_id": "r1"})
	runLogger.WithFields(Fields{"container": "sub"}).Info(context.Background(), "listing", Fields{"page": 1})
	logger.Info(context.Background(), "plain", nil)
	logger.Close()

	lines := strings.Split(strings.TrimSpace(readLog(t, path)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first, second map[string]interface{}
	json.Unmarshal([]byte(lines[0]), &first)
	json.Unmarshal([]byte(lines[1]), &second)

	if first["run_id"] != "r1" || first["container"] != "sub" || first["page"] != float64(1) {
		t.Errorf("derived fields missing: %v", first)
	}
	if _, ok := second["run_id"]; ok {
		t.Error("parent logger must not inherit child fields")
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{
		Format:     FormatText,
		Level:      InfoLevel,
		MaxSize:    100,
		MaxBackups: 2,
	})

	for i := 0; i < 20; i++ {
		logger.Info(context.Background(), "This is a test message that is long enough to trigger rotation eventually", nil)
	}
	logger.Close()

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond MaxBackups should be removed")
	}
}

func TestFileLogger_CompressedRotation(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{
		Format:     FormatText,
		Level:      InfoLevel,
		MaxSize:    200,
		MaxBackups: 3,
		Compress:   true,
	})

	// derived loggers share the file and trigger rotation too
	child := logger.WithFields(Fields{"run_id": "r1"})
	for i := 0; i < 10; i++ {
		child.Info(context.Background(), "Skipping (unchanged)", Fields{"path": "a/very/long/path/to/a/file/that/fills/the/log.txt"})
	}
	logger.Close()

	f, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress error = %v", err)
	}
	if !bytes.Contains(data, []byte("Skipping (unchanged)")) {
		t.Errorf("backup content = %q", data)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("uncompressed backup should not remain")
	}
}

func TestFileLogger_WriteAfterClose(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{Format: FormatText, Level: InfoLevel})
	logger.Close()
	logger.Info(context.Background(), "late", nil)

	if strings.Contains(readLog(t, path), "late") {
		t.Error("entries after Close should be dropped")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	logger, path := newTestFileLogger(t, FileLoggerConfig{Format: FormatText, Level: InfoLevel})
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			l := logger.WithFields(Fields{"goroutine": id})
			for j := 0; j < 100; j++ {
				l.Info(ctx, "concurrent message", Fields{"iteration": j})
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for concurrent writes")
		}
	}
	logger.Close()

	lines := strings.Split(strings.TrimSpace(readLog(t, path)), "\n")
	if len(lines) != 1000 {
		t.Errorf("Expected 1000 log lines, got %d", len(lines))
	}
}

func TestDefaultFilePath(t *testing.T) {
	started := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	got := DefaultFilePath("", "0AbC", started)
	want := filepath.Join("logs", "download_0AbC_20240309_140507.log")
	if got != want {
		t.Errorf("DefaultFilePath() = %s, want %s", got, want)
	}
}

// ============== Level Tests ==============

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"Warning", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLevel(tt.input); result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if LevelString(Level(99)) != "UNKNOWN" {
		t.Error("unknown level should print UNKNOWN")
	}
	if LevelString(WarnLevel) != "WARN" {
		t.Error("WarnLevel should print WARN")
	}
}
