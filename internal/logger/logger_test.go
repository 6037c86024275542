package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	defer func() { zerolog.DefaultContextLogger = nil }()

	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(tt.level, &buf)

			if l.GetLevel() != tt.expected {
				t.Errorf("Expected level %v, got %v", tt.expected, l.GetLevel())
			}
			if zerolog.DefaultContextLogger == nil {
				t.Error("Expected default context logger to be set")
			}
		})
	}
}

func TestLogFields(t *testing.T) {
	defer func() { zerolog.DefaultContextLogger = nil }()

	var buf bytes.Buffer
	l := NewWithWriter("info", &buf)
	l.Info().Str("post_id", "p1").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	for _, field := range []string{"pid", "go_version", "git_revision", "time", "caller"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("Expected field %q in %v", field, entry)
		}
	}
	if entry["post_id"] != "p1" || entry["message"] != "hello" {
		t.Errorf("Unexpected entry %v", entry)
	}
}
