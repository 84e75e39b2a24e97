// Package observability defines the tracing, metrics and logging interfaces
// used across redline, together with the attribute, span, event and metric
// names that storage backends and the memory manager record.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. Components accept a nil Provider and stay silent in that case.
// An active Provider and [Span] travel through a [context.Context] with
// [ContextWithObserver] and [ContextWithSpan].
package observability
