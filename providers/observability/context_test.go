package observability

import (
	"context"
	"testing"
)

type mockSpan struct {
	name string
}

func (m *mockSpan) End()                                          {}
func (m *mockSpan) SetAttributes(attrs ...Attribute)              {}
func (m *mockSpan) SetStatus(code StatusCode, description string) {}
func (m *mockSpan) RecordError(err error)                         {}
func (m *mockSpan) AddEvent(name string, attrs ...Attribute)      {}

type mockProvider struct {
	label string
}

func (m *mockProvider) StartSpan(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, nil
}
func (m *mockProvider) Counter(_ string) Counter                          { return nil }
func (m *mockProvider) Histogram(_ string) Histogram                      { return nil }
func (m *mockProvider) Trace(_ context.Context, _ string, _ ...Attribute) {}
func (m *mockProvider) Debug(_ context.Context, _ string, _ ...Attribute) {}
func (m *mockProvider) Info(_ context.Context, _ string, _ ...Attribute)  {}
func (m *mockProvider) Warn(_ context.Context, _ string, _ ...Attribute)  {}
func (m *mockProvider) Error(_ context.Context, _ string, _ ...Attribute) {}

func TestContextWithSpan_RoundTrip(t *testing.T) {
	span := &mockSpan{name: "storage.save"}
	ctx := ContextWithSpan(context.Background(), span)

	if got := SpanFromContext(ctx); got != span {
		t.Fatalf("Expected stored span, got %v", got)
	}
}

func TestSpanFromContext_Missing(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("Expected nil span, got %v", span)
	}
	//nolint:staticcheck // nil context is accepted on purpose
	if span := SpanFromContext(nil); span != nil {
		t.Errorf("Expected nil span for nil context, got %v", span)
	}
}

func TestContextWithSpan_NilContext(t *testing.T) {
	span := &mockSpan{name: "nil-ctx"}
	//nolint:staticcheck // nil context is accepted on purpose
	ctx := ContextWithSpan(nil, span)
	if SpanFromContext(ctx) != span {
		t.Errorf("Expected span to be attached to a fresh context")
	}
}

func TestContextWithObserver_RoundTrip(t *testing.T) {
	observer := &mockProvider{label: "round-trip"}
	ctx := ContextWithObserver(context.Background(), observer)

	retrieved, ok := ObserverFromContext(ctx).(*mockProvider)
	if !ok {
		t.Fatalf("Expected *mockProvider, got %T", ObserverFromContext(ctx))
	}
	if retrieved.label != "round-trip" {
		t.Errorf("Expected label 'round-trip', got %q", retrieved.label)
	}
}

func TestObserverFromContext_Missing(t *testing.T) {
	if observer := ObserverFromContext(context.Background()); observer != nil {
		t.Errorf("Expected nil observer, got %v", observer)
	}
}
