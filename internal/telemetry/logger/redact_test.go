package logger

import (
	"log/slog"
	"testing"
)

func TestRedactSensitive(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    any
		redacted bool
	}{
		{"stored value", "value", "top secret payload", true},
		{"old value", "old_value", "payload", true},
		{"password", "password", "hunter2", true},
		{"authorization header", "Authorization", "Bearer abc", true},
		{"token", "api_token", "t0k3n", true},
		{"key is not sensitive", "key", "user-42", false},
		{"method", "method", "GET", false},
		{"empty value kept", "value", "", false},
		{"non-string kept", "max_value_bytes", 1024, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t, "info", "json")
			l.Info("msg", tt.key, tt.value)

			got := decode(t, buf)[tt.key]
			if tt.redacted {
				if got != redactedValue {
					t.Errorf("%s = %v, want redacted", tt.key, got)
				}
				return
			}
			if got == redactedValue {
				t.Errorf("%s should not be redacted", tt.key)
			}
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	l.Info("write", slog.Group("entry", slog.String("key", "k1"), slog.String("value", "payload")))

	group, ok := decode(t, buf)["entry"].(map[string]any)
	if !ok {
		t.Fatal("Expected entry group in log")
	}
	if group["key"] != "k1" {
		t.Errorf("entry.key = %v, want k1", group["key"])
	}
	if group["value"] != redactedValue {
		t.Errorf("entry.value = %v, want redacted", group["value"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := map[string]bool{
		"value":         true,
		"VALUE":         true,
		"client_secret": true,
		"key":           false,
		"route":         false,
	}
	for key, want := range tests {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}
