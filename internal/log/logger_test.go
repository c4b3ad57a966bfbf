package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		args []interface{}
		want string
	}{
		{"no args", "hello", nil, "hello"},
		{"key value pairs", "done", []interface{}{"count", 3, "file", "a.yaml"}, "done count=3 file=a.yaml"},
		{"odd arg prefixed", "oops", []interface{}{"dangling"}, "oops dangling"},
		{"odd then pairs", "oops", []interface{}{"x", "k", "v"}, "oops x k=v"},
		{"non-string key skipped", "msg", []interface{}{42, "v"}, "msg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMessage(tt.msg, tt.args...); got != tt.want {
				t.Errorf("formatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: WarnLevel, Stderr: &buf})

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")
	l.Error("also shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-severity messages should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN: shown") {
		t.Errorf("expected warn line in %q", out)
	}
	if !strings.Contains(out, "ERROR: also shown") {
		t.Errorf("expected error line in %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: ErrorLevel, Stderr: &buf})

	l.Info("before")
	l.SetLevel(DebugLevel)
	l.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("info should be filtered at error level: %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("debug should pass after SetLevel: %q", out)
	}
}

func TestPlainOutputShape(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, Stderr: &buf})

	l.Info("loaded", "functions", 2)

	out := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(out, "[") {
		t.Errorf("expected timestamp prefix, got %q", out)
	}
	if !strings.HasSuffix(out, "INFO: loaded functions=2") {
		t.Errorf("unexpected line shape %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("buffer writer must not get ANSI colors: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, JSONOutput: true, Stderr: &buf})

	l.Warn("cache miss", "key", "main@01")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("expected level WARN, got %v", entry["level"])
	}
	if entry["message"] != "cache miss key=main@01" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry["timestamp"] == "" {
		t.Error("expected a timestamp field")
	}
}

func TestSetJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, Stderr: &buf})

	l.SetJSONOutput(true)
	l.Info("switched")

	if !json.Valid(buf.Bytes()) {
		t.Errorf("expected JSON after SetJSONOutput: %q", buf.String())
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same instance")
	}
}
