package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantJSON bool
	}{
		{"json", "json", true},
		{"empty defaults to json", "", true},
		{"text", "text", false},
		{"console alias", "console", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t, "info", tt.format)
			l.Info("hello", "component", "test")

			out := strings.TrimSpace(buf.String())
			isJSON := strings.HasPrefix(out, "{")
			if isJSON != tt.wantJSON {
				t.Errorf("output %q: json = %v, want %v", out, isJSON, tt.wantJSON)
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("test message", "component", "store")

			entry := decode(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["msg"] != "test message" {
				t.Errorf("msg = %v", entry["msg"])
			}
			if entry["component"] != "store" {
				t.Errorf("component = %v", entry["component"])
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	l.With("transport", "http").Info("started")

	if got := decode(t, buf)["transport"]; got != "http" {
		t.Errorf("transport = %v, want http", got)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error", "json")

	l.Info("filtered")
	if buf.Len() > 0 {
		t.Error("Info should be filtered at error level")
	}

	SetLevel("debug")
	defer SetLevel("info")

	l.Info("after level change")
	if buf.Len() == 0 {
		t.Error("Info should be logged after level changed to debug")
	}
	if level := GetLevel(); level != "debug" {
		t.Errorf("GetLevel() = %q, want debug", level)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"DEBUG", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"bogus", "info"},
		{"", "info"},
	}

	defer SetLevel("info")
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			SetLevel(tt.input)
			if got := GetLevel(); got != tt.want {
				t.Errorf("SetLevel(%q) then GetLevel() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = false, want true", level)
		}
	}
	for _, level := range []string{"", "trace", "fatal"} {
		if ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = true, want false", level)
		}
	}
}

func TestSlog(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	Slog(l).Info("via slog", "password", "hunter2")

	entry := decode(t, buf)
	if entry["msg"] != "via slog" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["password"] != redactedValue {
		t.Errorf("password = %v, want redacted", entry["password"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing")
	l.With("a", 1).WithContext(context.Background()).Info("still nothing")
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	l, buf := newBufferLogger(t, "info", "json")
	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	Default().Info("from default")
	if decode(t, buf)["msg"] != "from default" {
		t.Error("Default() should return the logger passed to SetDefault")
	}
}

func TestWithContext_AddsRequestID(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	ctx := WithRequestID(context.Background(), "req-7")
	l.WithContext(ctx).Info("bound")

	if got := decode(t, buf)["request_id"]; got != "req-7" {
		t.Errorf("request_id = %v, want req-7", got)
	}

	buf.Reset()
	l.WithContext(context.Background()).Info("unbound")
	if _, ok := decode(t, buf)["request_id"]; ok {
		t.Error("request_id should be absent without one in the context")
	}
}
