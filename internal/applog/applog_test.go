package applog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewDefaultsOutput(t *testing.T) {
	l := New(Config{Output: nil})
	if l.output == nil {
		t.Error("expected default output to be set")
	}
}

func TestLogIncludesLevelAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "test"})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	for _, want := range []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]", "test:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestLogFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	out := buf.String()
	if strings.Contains(out, "[DEBUG]") || strings.Contains(out, "[INFO]") {
		t.Errorf("expected debug/info filtered out, got: %s", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Errorf("expected warn/error present, got: %s", out)
	}
}

func TestLogFormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Info("formatted %s %d", "test", 42)

	if !strings.Contains(buf.String(), "formatted test 42") {
		t.Errorf("expected formatted message, got: %s", buf.String())
	}
}

func TestWithFieldAppearsInOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.WithField("key", "value").Info("test")

	if !strings.Contains(buf.String(), "key=value") {
		t.Errorf("expected field in output, got: %s", buf.String())
	}
}

func TestWithComponentAppearsInOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.WithComponent("reconcile").Info("test")

	if !strings.Contains(buf.String(), "component=reconcile") {
		t.Errorf("expected component in output, got: %s", buf.String())
	}
}

func TestFieldsRenderInSortedOrder(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.WithField("zeta", 1).WithField("alpha", 2).Info("test")

	out := buf.String()
	if strings.Index(out, "alpha=2") > strings.Index(out, "zeta=1") {
		t.Errorf("expected alpha before zeta regardless of insertion order, got: %s", out)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: LevelInfo, Output: &buf})
	_ = base.WithField("key", "value")

	base.Info("test")
	if strings.Contains(buf.String(), "key=value") {
		t.Error("WithField should not mutate the receiver")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelError, Output: &buf})

	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Error("expected no output below configured level")
	}

	l.SetLevel(LevelInfo)
	l.Info("should appear")
	if buf.Len() == 0 {
		t.Error("expected output after SetLevel")
	}
}

func TestSetOutput(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf1})

	l.Info("to buf1")
	if buf1.Len() == 0 {
		t.Error("expected output to buf1")
	}

	l.SetOutput(&buf2)
	l.Info("to buf2")
	if buf2.Len() == 0 {
		t.Error("expected output to buf2")
	}
}

func TestDiscardNeverPanics(t *testing.T) {
	Discard.Debug("test")
	Discard.Info("test")
	Discard.Warn("test")
	Discard.Error("test")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("expected default level INFO, got %v", cfg.Level)
	}
	if cfg.Output == nil {
		t.Error("expected default output to be set")
	}
	if cfg.Prefix != "tuicore" {
		t.Errorf("expected prefix %q, got %q", "tuicore", cfg.Prefix)
	}
}
