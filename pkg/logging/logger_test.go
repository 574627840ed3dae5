package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "WARN", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error level", " error ", slog.LevelError},
		{"default info", "", slog.LevelInfo},
		{"unknown falls back", "verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.want {
				t.Fatalf("ParseLevel(%q) = %s, want %s", tt.level, got, tt.want)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level")
	}
	if logger == Default() {
		t.Error("Default() returned the same instance twice")
	}
}

func TestWithComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info").WithComponent("availability")

	logger.Info("slots computed", "count", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["component"] != "availability" {
		t.Fatalf("expected component tag, got %v", record["component"])
	}
	if record["msg"] != "slots computed" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
}

func TestWithComponentNilReceiver(t *testing.T) {
	var l *Logger
	if l.WithComponent("x") == nil {
		t.Fatal("expected a usable logger from nil receiver")
	}
}
