package eventlog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.Info("opened session", "host", "localhost")
	sink.Warn("reopen failed", "err", "connection refused")
	sink.Error("init failed")

	out := buf.String()
	if !strings.Contains(out, "opened session") {
		t.Errorf("expected info message in output, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected WARN level, got %q", out)
	}
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("expected ERROR level, got %q", out)
	}
}

func TestNewSlogSinkNilLoggerDoesNotPanic(t *testing.T) {
	sink := NewSlogSink(nil)
	sink.Info("hello")
}

func TestNoopSinkDiscardsEverything(t *testing.T) {
	sink := Noop()
	// Should not panic and should produce no observable side effect.
	sink.Info("a")
	sink.Warn("b")
	sink.Error("c")
}
