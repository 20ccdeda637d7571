package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestZapLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLogger(ZapConfig{Level: InfoLevel, Format: "json", Output: &buf})

	logger.Debug(context.Background(), "hidden", nil)
	logger.WithFields(Fields{"run_id": "r1"}).Error(context.Background(), "list failed", errors.New("403"), Fields{"container": "root"})
	logger.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %s", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for k, want := range map[string]string{"msg": "list failed", "level": "error", "error": "403", "run_id": "r1", "container": "root"} {
		if entry[k] != want {
			t.Errorf("%s = %v, want %s", k, entry[k], want)
		}
	}
}

func TestZapLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLogger(ZapConfig{Level: DebugLevel, Output: &buf})
	logger.Warn(context.Background(), "Unsupported entry", Fields{"path": "Notes"})

	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "Unsupported entry") || !strings.Contains(out, `"path": "Notes"`) {
		t.Errorf("unexpected console output: %s", out)
	}
}

type recordingLogger struct {
	NullLogger
	messages []string
	closed   bool
	fields   Fields
}

func (r *recordingLogger) Info(ctx context.Context, msg string, fields Fields) {
	r.messages = append(r.messages, msg)
}

func (r *recordingLogger) WithFields(fields Fields) Logger {
	r.fields = fields
	return r
}

func (r *recordingLogger) Close() error {
	r.closed = true
	return errors.New("close failed")
}

func TestMultiLogger(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	multi := NewMultiLogger(a, nil, b)

	multi.WithFields(Fields{"run_id": "r1"}).Info(context.Background(), "hello", nil)
	if len(a.messages) != 1 || len(b.messages) != 1 {
		t.Errorf("messages = %v / %v, want one each", a.messages, b.messages)
	}
	if a.fields["run_id"] != "r1" {
		t.Error("WithFields not propagated")
	}

	if err := multi.Close(); err == nil || !a.closed || !b.closed {
		t.Error("Close should close every logger and report failures")
	}
}

func TestMultiLogger_Collapses(t *testing.T) {
	if _, ok := NewMultiLogger().(*NullLogger); !ok {
		t.Error("no loggers should give a NullLogger")
	}
	single := &recordingLogger{}
	if NewMultiLogger(nil, single) != Logger(single) {
		t.Error("a single logger should be returned as is")
	}
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	ctx := context.Background()

	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	if logger.WithFields(Fields{"key": "value"}) == nil {
		t.Error("WithFields should return a logger")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
