package storage

import (
	"context"
	"errors"

	"github.com/jnorthrup/redline/internal/utils"
	"github.com/jnorthrup/redline/providers/observability"
)

// Observed wraps a Storage and records a span, an operation counter, a
// duration histogram and log events for every call.
type Observed struct {
	next     Storage
	backend  string
	observer observability.Provider
}

var _ Storage = (*Observed)(nil)

// WithObserver decorates s with observer. A nil observer returns s unchanged.
// backend labels the records ("file", "postgres", ...).
func WithObserver(s Storage, backend string, observer observability.Provider) Storage {
	if observer == nil {
		return s
	}
	return &Observed{next: s, backend: backend, observer: observer}
}

// Unwrap returns the decorated Storage.
func (o *Observed) Unwrap() Storage {
	return o.next
}

func (o *Observed) Save(ctx context.Context, key string, value any) error {
	ctx, span := o.start(ctx, observability.SpanStorageSave, key)
	defer span.End()

	timer := utils.NewTimer()
	err := o.next.Save(ctx, key, value)
	timer.Stop()

	o.finish(ctx, span, "save", key, timer, err)
	return err
}

func (o *Observed) Load(ctx context.Context, key string) (Result, error) {
	ctx, span := o.start(ctx, observability.SpanStorageLoad, key)
	defer span.End()

	timer := utils.NewTimer()
	result, err := o.next.Load(ctx, key)
	timer.Stop()

	if err == nil {
		span.SetAttributes(observability.String(observability.AttrStorageStatus, result.Status.String()))
		switch {
		case result.Status == StatusCorrupt:
			o.observer.Warn(ctx, "storage value is corrupt",
				observability.String(observability.AttrStorageBackend, o.backend),
				observability.String(observability.AttrStorageKey, key),
				observability.Error(result.Cause),
			)
		case result.Repaired:
			o.observer.Info(ctx, "storage value repaired",
				observability.String(observability.AttrStorageBackend, o.backend),
				observability.String(observability.AttrStorageKey, key),
			)
		}
	}
	o.finish(ctx, span, "load", key, timer, err)
	return result, err
}

func (o *Observed) Clear(ctx context.Context) error {
	ctx, span := o.start(ctx, observability.SpanStorageClear, "")
	defer span.End()

	timer := utils.NewTimer()
	err := o.next.Clear(ctx)
	timer.Stop()

	o.finish(ctx, span, "clear", "", timer, err)
	return err
}

func (o *Observed) start(ctx context.Context, name, key string) (context.Context, observability.Span) {
	attrs := []observability.Attribute{observability.String(observability.AttrStorageBackend, o.backend)}
	if key != "" {
		attrs = append(attrs, observability.String(observability.AttrStorageKey, key))
	}
	ctx, span := o.observer.StartSpan(ctx, name, attrs...)
	ctx = observability.ContextWithSpan(ctx, span)
	return observability.ContextWithObserver(ctx, o.observer), span
}

func (o *Observed) finish(ctx context.Context, span observability.Span, op, key string, timer *utils.Timer, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(observability.StatusError, op+" failed")

		attrs := []observability.Attribute{
			observability.String(observability.AttrStorageBackend, o.backend),
			observability.Duration(observability.AttrDuration, timer.GetDuration()),
			observability.Error(err),
		}
		if key != "" {
			attrs = append(attrs, observability.String(observability.AttrStorageKey, key))
		}
		if errors.Is(err, ErrInvalidKey) {
			o.observer.Warn(ctx, "storage "+op+" rejected", attrs...)
		} else {
			o.observer.Error(ctx, "storage "+op+" failed", attrs...)
		}
	} else {
		span.SetStatus(observability.StatusOK, "")
	}

	o.observer.Counter(observability.MetricStorageOpCount).Add(ctx, 1,
		observability.String(observability.AttrStorageBackend, o.backend),
		observability.String("op", op),
		observability.String(observability.AttrStatus, status),
	)
	o.observer.Histogram(observability.MetricStorageOpDuration).Record(ctx, timer.GetDuration().Seconds(),
		observability.String(observability.AttrStorageBackend, o.backend),
		observability.String("op", op),
	)
}
