package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: DEBUG, Service: "bookings"})

	log.With("request_id", "abc").Info("hello", "guests", 2)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "bookings" {
		t.Errorf("expected service attribute, got %v", record[SERVICE])
	}
	if record["request_id"] != "abc" {
		t.Errorf("expected request_id attribute, got %v", record["request_id"])
	}
	if record["msg"] != "hello" {
		t.Errorf("expected msg 'hello', got %v", record["msg"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: WARN, Format: TEXT})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn record should be written at warn level")
	}
}
