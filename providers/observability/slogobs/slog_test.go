package slogobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jnorthrup/redline/providers/observability"
)

func newTestObserver(level slog.Level) (*Observer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(WithOutput(&buf), WithFormat(FormatCompact), WithLevel(level)), &buf
}

func TestObserver_SpanLifecycle(t *testing.T) {
	observer, buf := newTestObserver(slog.LevelDebug)

	ctx, span := observer.StartSpan(context.Background(), observability.SpanStorageSave,
		observability.String(observability.AttrStorageKey, "history"))
	if observability.SpanFromContext(ctx) != span {
		t.Fatal("Expected span to be attached to the returned context")
	}

	span.AddEvent(observability.EventMemoryAppend)
	span.SetAttributes(observability.Int(observability.AttrStorageBytes, 12))
	span.RecordError(errors.New("disk full"))
	span.SetStatus(observability.StatusError, "save failed")
	span.End()

	output := buf.String()
	for _, want := range []string{"span started", "span event", "span error", "span ended", `"storage.bytes":12`, `"status":"error"`, "disk full"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}

func TestObserver_Counter(t *testing.T) {
	observer, _ := newTestObserver(slog.LevelDebug)
	ctx := context.Background()

	observer.Counter(observability.MetricMemoryMirrorCount).Add(ctx, 1)
	observer.Counter(observability.MetricMemoryMirrorCount).Add(ctx, 2)

	if got := observer.CounterValue(observability.MetricMemoryMirrorCount); got != 3 {
		t.Errorf("Expected counter value 3, got %d", got)
	}
	if got := observer.CounterValue("never.used"); got != 0 {
		t.Errorf("Expected 0 for unknown counter, got %d", got)
	}
	if observer.Histogram("h") != observer.Histogram("h") {
		t.Error("Expected the same histogram instance for the same name")
	}
}

func TestObserver_LogLevels(t *testing.T) {
	observer, buf := newTestObserver(slog.LevelInfo)
	ctx := context.Background()

	observer.Trace(ctx, "trace-msg")
	observer.Debug(ctx, "debug-msg")
	observer.Info(ctx, "info-msg", observability.String("k", "v"))
	observer.Warn(ctx, "warn-msg")
	observer.Error(ctx, "error-msg", observability.Error(errors.New("boom")))

	output := buf.String()
	for _, hidden := range []string{"trace-msg", "debug-msg"} {
		if strings.Contains(output, hidden) {
			t.Errorf("Did not expect %q at INFO level", hidden)
		}
	}
	for _, shown := range []string{"info-msg", "warn-msg", "error-msg", `"error":"boom"`} {
		if !strings.Contains(output, shown) {
			t.Errorf("Expected %q in output:\n%s", shown, output)
		}
	}
}
