package cachegate

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerInfoWritesWireFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, false)

	l.Info("lookup for %p", "http://example.com/a")

	got := buf.String()
	if !strings.HasPrefix(got, "[RCL] [INFO] ") {
		t.Errorf("unexpected wire format: %q", got)
	}
	if !strings.Contains(got, `"http://example.com/a"`) {
		t.Errorf("expected %%p to quote string argument, got %q", got)
	}
}

func TestLoggerTraceSuppressedWithoutVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, false)

	l.Trace("detail %p", "x")

	if buf.Len() != 0 {
		t.Errorf("expected Trace to be suppressed without verbose, got %q", buf.String())
	}
}

func TestLoggerTraceEmittedWithVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, true)

	l.Trace("detail %p", "x")

	if !strings.Contains(buf.String(), "[RCL] [TRACE]") {
		t.Errorf("expected verbose Trace to be emitted, got %q", buf.String())
	}
}

func TestLoggerNilIsNoOp(t *testing.T) {
	var l *Logger
	l.Info("should not panic")
}

func TestRenderfLeavesNonTextUnquoted(t *testing.T) {
	got := renderf("code=%p", 404)
	if got != "code=404" {
		t.Errorf("renderf with int = %q, want %q", got, "code=404")
	}
}
