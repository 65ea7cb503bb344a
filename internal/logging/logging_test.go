package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewLoggerWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.File = filepath.Join(dir, "logs", "facescore.log")

	var console bytes.Buffer
	logger, closeFn, err := newLogger(cfg, &console)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}

	logger.Info("models loaded", zap.String("device", "cpu"))
	logger.Debug("hidden at info level")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if !strings.Contains(console.String(), "models loaded") {
		t.Errorf("console output missing message: %q", console.String())
	}
	if strings.Contains(console.String(), "hidden at info level") {
		t.Errorf("debug message leaked at info level")
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("file entry is not JSON: %v (%q)", err, data)
	}
	if entry["msg"] != "models loaded" || entry["device"] != "cpu" {
		t.Errorf("unexpected file entry: %v", entry)
	}
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := newLogger(Config{Level: "warn"}, &console)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Warn("careful")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(console.String(), "careful") {
		t.Errorf("missing warn output: %q", console.String())
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "chatty"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestOperationError(t *testing.T) {
	base := fs.ErrNotExist
	err := NewOperationError("decode", "req-1", base)

	if err.Error() != "decode (request_id=req-1): file does not exist" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is should see the wrapped error")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "decode" {
		t.Errorf("errors.As failed: %v", err)
	}

	if got := NewOperationError("load", "", base).Error(); got != "load: file does not exist" {
		t.Errorf("unexpected message without request id: %q", got)
	}
	if NewOperationError("noop", "", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}
