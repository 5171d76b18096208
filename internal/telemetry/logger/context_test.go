package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("test message")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext without logger should return the default logger")
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}

	ctx = WithRequestID(ctx, "01HZY3")
	if got := RequestIDFromContext(ctx); got != "01HZY3" {
		t.Errorf("RequestIDFromContext() = %q, want 01HZY3", got)
	}
}

func TestL_AddsRequestID(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	ctx = WithRequestID(ctx, "req-123")
	L(ctx).Info("handled")

	if got := decode(t, buf)["request_id"]; got != "req-123" {
		t.Errorf("request_id = %v, want req-123", got)
	}
}
