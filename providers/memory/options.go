package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/jnorthrup/redline/providers/observability"
)

// MirrorPolicy controls whether AddToHistory waits for its mirror write.
type MirrorPolicy int

const (
	// MirrorAsync queues the write and returns immediately.
	MirrorAsync MirrorPolicy = iota
	// MirrorSync waits for the write covering the appended message and
	// returns its error.
	MirrorSync
)

func (p MirrorPolicy) String() string {
	if p == MirrorSync {
		return "sync"
	}
	return "async"
}

// ParseMirrorPolicy accepts "async" and "sync" (case-insensitive). The empty
// string selects MirrorAsync.
func ParseMirrorPolicy(s string) (MirrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "async":
		return MirrorAsync, nil
	case "sync":
		return MirrorSync, nil
	default:
		return MirrorAsync, fmt.Errorf("memory: unknown mirror policy %q", s)
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithMirrorPolicy sets the mirror policy (default MirrorAsync).
func WithMirrorPolicy(policy MirrorPolicy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithMirrorTimeout bounds each mirror write. Zero means no bound.
func WithMirrorTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.mirrorTimeout = timeout
	}
}

// WithObserver enables tracing, metrics and logging for the manager.
func WithObserver(observer observability.Provider) Option {
	return func(m *Manager) {
		m.observer = observer
	}
}

// WithMirrorErrorHandler registers fn to receive failed history writes under
// MirrorAsync. fn runs on the writer goroutine and must not call back into
// the Manager's mirroring methods.
func WithMirrorErrorHandler(fn func(error)) Option {
	return func(m *Manager) {
		m.onMirrorError = fn
	}
}

// WithID overrides the generated manager ID.
func WithID(id string) Option {
	return func(m *Manager) {
		m.id = id
	}
}
