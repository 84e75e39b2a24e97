// Package slogobs implements observability.Provider on top of log/slog.
// Spans and metric updates are emitted as debug records, log calls map to
// slog levels, and output is rendered by [Handler] in compact, pretty or
// JSON form. Defaults come from REDLINE_LOG_FORMAT and REDLINE_LOG_LEVEL
// (falling back to LOG_FORMAT and LOG_LEVEL).
package slogobs
