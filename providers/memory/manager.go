package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jnorthrup/redline/providers/observability"
	"github.com/jnorthrup/redline/providers/storage"
)

// ErrClosed is returned by AddToHistory and ResumeHistory after Close.
var ErrClosed = errors.New("memory: manager is closed")

// Manager owns one conversation transcript and mediates between callers and
// the persistent and context backends. It is safe for concurrent use.
type Manager struct {
	id         string
	persistent storage.Storage
	ctxStore   storage.Storage

	policy        MirrorPolicy
	mirrorTimeout time.Duration
	observer      observability.Provider
	onMirrorError func(error)

	mu         sync.Mutex
	transcript []string
	closed     bool
	mirror     mirrorQueue
}

// New returns a Manager with an empty transcript. persistent serves
// Save/LoadPersistentData; contextStore receives the history mirror.
func New(persistent, contextStore storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		persistent: persistent,
		ctxStore:   contextStore,
		policy:     MirrorAsync,
		transcript: []string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = uuid.NewString()
	}
	return m
}

// ID identifies the manager in logs and spans.
func (m *Manager) ID() string {
	return m.id
}

// Policy returns the configured mirror policy.
func (m *Manager) Policy() MirrorPolicy {
	return m.policy
}

// SavePersistentData saves data under key in the persistent backend. The
// backend's error is returned unchanged.
func (m *Manager) SavePersistentData(ctx context.Context, key string, data any) error {
	return m.persistent.Save(ctx, key, data)
}

// LoadPersistentData loads key from the persistent backend. The result is
// returned as the backend produced it; a missing key is a StatusAbsent
// result, not an error.
func (m *Manager) LoadPersistentData(ctx context.Context, key string) (storage.Result, error) {
	return m.persistent.Load(ctx, key)
}

// AddToHistory appends message to the transcript and queues a write of the
// full snapshot to the context backend. The append is visible through
// Transcript immediately. Under MirrorSync the call waits for the write and
// returns its error; the message stays in the transcript either way. A
// message that is not valid UTF-8 is rejected before it is appended, with an
// error wrapping storage.ErrUnencodable.
func (m *Manager) AddToHistory(ctx context.Context, message string) error {
	ctx, span := m.startSpan(ctx, observability.SpanMemoryAddToHistory)
	defer endSpan(span)

	if !utf8.ValidString(message) {
		return fmt.Errorf("memory: add to history: %w: message is not valid UTF-8", storage.ErrUnencodable)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.transcript = append(m.transcript, message)
	total := len(m.transcript)
	seq := m.enqueueLocked(ctx, mirrorSave, m.snapshotLocked())
	var done <-chan error
	if m.policy == MirrorSync {
		done = m.mirror.register(seq)
	}
	m.mu.Unlock()

	if span != nil {
		span.AddEvent(observability.EventMemoryAppend,
			observability.Int(observability.AttrMemoryMessageLength, len(message)),
		)
		span.SetAttributes(
			observability.Int(observability.AttrMemoryTotalMessages, total),
			observability.Int64(observability.AttrMemoryMirrorGeneration, int64(seq)),
		)
	}

	if done == nil {
		return nil
	}
	err := m.await(ctx, done)
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "history mirror failed")
	}
	return err
}

// GetConversationHistory returns the history stored in the context backend.
// It first waits for the mirror writes queued before the call. A missing or
// undecodable history reads as an empty slice; an unreachable backend is an
// error.
func (m *Manager) GetConversationHistory(ctx context.Context) ([]string, error) {
	ctx, span := m.startSpan(ctx, observability.SpanMemoryGetHistory)
	defer endSpan(span)

	// A failed mirror leaves the backend at its last good snapshot, which is
	// still what this method reports.
	if err := m.Flush(ctx); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result, err := m.ctxStore.Load(ctx, storage.HistoryKey)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "history load failed")
		}
		return nil, fmt.Errorf("memory: load history: %w", err)
	}
	if span != nil {
		span.SetAttributes(observability.String(observability.AttrStorageStatus, result.Status.String()))
	}

	switch result.Status {
	case storage.StatusFound:
		var history []string
		if err := result.Decode(&history); err != nil {
			m.warn(ctx, "stored history has unexpected shape", observability.Error(err))
			return []string{}, nil
		}
		if history == nil {
			history = []string{}
		}
		return history, nil
	case storage.StatusCorrupt:
		m.warn(ctx, "stored history is corrupt", observability.Error(result.Cause))
		return []string{}, nil
	default:
		return []string{}, nil
	}
}

// ResumeHistory seeds an empty transcript with the history stored in the
// context backend, so that later appends extend it instead of replacing
// it. It returns the resulting transcript. Once the transcript holds
// messages it is left untouched.
func (m *Manager) ResumeHistory(ctx context.Context) ([]string, error) {
	ctx, span := m.startSpan(ctx, observability.SpanMemoryResumeHistory)
	defer endSpan(span)

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	stored, err := m.GetConversationHistory(ctx)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "history resume failed")
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if len(m.transcript) == 0 {
		m.transcript = append(m.transcript, stored...)
	}
	if span != nil {
		span.SetAttributes(observability.Int(observability.AttrMemoryTotalMessages, len(m.transcript)))
	}
	return m.snapshotLocked(), nil
}

// ClearHistory empties the transcript and clears the context backend. The
// transcript is reset even when the backend clear fails; that failure is
// logged as a warning and returned. It keeps working after Close.
func (m *Manager) ClearHistory(ctx context.Context) error {
	ctx, span := m.startSpan(ctx, observability.SpanMemoryClearHistory)
	defer endSpan(span)

	m.mu.Lock()
	m.transcript = []string{}
	seq := m.enqueueLocked(ctx, mirrorClear, nil)
	done := m.mirror.register(seq)
	m.mu.Unlock()

	if span != nil {
		span.AddEvent(observability.EventMemoryClear)
	}

	if err := m.await(ctx, done); err != nil {
		m.warn(ctx, "context clear failed", observability.Error(err))
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "context clear failed")
		}
		return err
	}
	return nil
}

// Transcript returns a copy of the in-memory transcript.
func (m *Manager) Transcript() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Flush waits until every mirror job queued before the call has run and
// returns the error of the last one. A nil result means the context backend
// held the transcript as of the call.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	done := m.mirror.register(m.mirror.lastSeq)
	m.mu.Unlock()
	return m.await(ctx, done)
}

// Close flushes pending writes and rejects further appends. Calling Close
// again only flushes.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.Flush(ctx)
}

func (m *Manager) snapshotLocked() []string {
	return append(make([]string, 0, len(m.transcript)), m.transcript...)
}

func (m *Manager) await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) startSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	if m.observer == nil {
		return ctx, nil
	}
	attrs = append(attrs,
		observability.String(observability.AttrMemoryManagerID, m.id),
		observability.String(observability.AttrMemoryMirrorPolicy, m.policy.String()),
	)
	ctx, span := m.observer.StartSpan(ctx, name, attrs...)
	return observability.ContextWithSpan(ctx, span), span
}

func endSpan(span observability.Span) {
	if span != nil {
		span.End()
	}
}

func (m *Manager) warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	if m.observer == nil {
		return
	}
	m.observer.Warn(ctx, msg, append(attrs, observability.String(observability.AttrMemoryManagerID, m.id))...)
}
