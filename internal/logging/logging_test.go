package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		env      string
		level    string
		expected zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"production", "LOUD", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		l := NewWithWriter(&bytes.Buffer{}, tc.env, tc.level)
		if l.GetLevel() != tc.expected {
			t.Errorf("New(%q, %q) level = %v, want %v", tc.env, tc.level, l.GetLevel(), tc.expected)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "production", "")
	l.Info().Str("course", "c1").Msg("loaded")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected JSON log line, got %q (%v)", buf.String(), err)
	}
	if line["course"] != "c1" || line["message"] != "loaded" {
		t.Errorf("Unexpected log line %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Error("Expected timestamp field")
	}
}
