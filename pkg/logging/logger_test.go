package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		logAt     Level
		wantEmpty bool
	}{
		{"Debug suppressed at Info", InfoLevel, DebugLevel, true},
		{"Info emitted at Info", InfoLevel, InfoLevel, false},
		{"Warn emitted at Info", InfoLevel, WarnLevel, false},
		{"Error emitted at Warn", WarnLevel, ErrorLevel, false},
		{"Info suppressed at Error", ErrorLevel, InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, tt.level)

			switch tt.logAt {
			case DebugLevel:
				logger.Debug("message")
			case InfoLevel:
				logger.Info("message")
			case WarnLevel:
				logger.Warn("message")
			case ErrorLevel:
				logger.Error("message")
			}

			if tt.wantEmpty && buf.Len() != 0 {
				t.Errorf("Expected no output, got %q", buf.String())
			}
			if !tt.wantEmpty && buf.Len() == 0 {
				t.Error("Expected output, got none")
			}
		})
	}
}

func TestJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("banned server", Pool("sharded_db"), Server("localhost", 5432), Shard(0))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Message != "banned server" {
		t.Errorf("Expected message 'banned server', got %q", entry.Message)
	}
	if entry.Fields["pool"] != "sharded_db" {
		t.Errorf("Expected pool field 'sharded_db', got %v", entry.Fields["pool"])
	}
	if entry.Fields["server"] != "localhost:5432" {
		t.Errorf("Expected server field 'localhost:5432', got %v", entry.Fields["server"])
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Pool("sharded_db"))
	child.Info("first")
	child.Info("second", String("extra", "value"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	for i, line := range lines {
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Line %d: failed to unmarshal: %v", i, err)
		}
		if entry.Fields["pool"] != "sharded_db" {
			t.Errorf("Line %d: expected inherited pool field, got %v", i, entry.Fields["pool"])
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
