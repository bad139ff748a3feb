package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf)
	l.Info("zones", "hidden %d", 1)
	l.Warn("zones", "shown %d", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO message should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [zones] shown 2") {
		t.Errorf("WARN message missing or malformed: %q", out)
	}
}

func TestSetDefaultNilMutes(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	SetDefault(nil)
	if Default().GetLevel() != SILENT {
		t.Errorf("Expected SILENT level, got %s", Default().GetLevel())
	}
	Error("mot", "should go nowhere")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{"debug": DEBUG, "INFO": INFO, "warning": WARN, "error": ERROR, "none": SILENT}
	for s, expected := range cases {
		level, err := ParseLevel(s)
		if err != nil {
			t.Errorf("Unexpected error for %q: %v", s, err)
		}
		if level != expected {
			t.Errorf("Wrong level for %q: %s, expected %s", s, level, expected)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
