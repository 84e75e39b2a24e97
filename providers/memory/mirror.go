package memory

import (
	"context"

	"github.com/jnorthrup/redline/internal/utils"
	"github.com/jnorthrup/redline/providers/observability"
	"github.com/jnorthrup/redline/providers/storage"
)

type mirrorOp int

const (
	mirrorSave mirrorOp = iota
	mirrorClear
)

func (op mirrorOp) String() string {
	if op == mirrorClear {
		return "clear"
	}
	return "save"
}

// mirrorJob is one pending write to the context backend. seq numbers are
// assigned in enqueue order and completed in the same order.
type mirrorJob struct {
	seq      uint64
	op       mirrorOp
	snapshot []string
	ctx      context.Context
}

type mirrorWaiter struct {
	seq  uint64
	done chan error
}

// mirrorQueue is the single-writer state. Every field is guarded by
// Manager.mu.
type mirrorQueue struct {
	pending []*mirrorJob
	running bool
	lastSeq uint64
	doneSeq uint64
	lastErr error
	waiters []mirrorWaiter
}

// register returns a channel that receives the error of job seq once it has
// run. A job that already ran resolves immediately.
func (q *mirrorQueue) register(seq uint64) <-chan error {
	done := make(chan error, 1)
	if q.doneSeq >= seq {
		done <- q.lastErr
		return done
	}
	q.waiters = append(q.waiters, mirrorWaiter{seq: seq, done: done})
	return done
}

// complete records the outcome of job seq and releases its waiters.
func (q *mirrorQueue) complete(seq uint64, err error) {
	q.doneSeq = seq
	q.lastErr = err
	remaining := q.waiters[:0]
	for _, w := range q.waiters {
		if w.seq <= seq {
			w.done <- err
			continue
		}
		remaining = append(remaining, w)
	}
	clear(q.waiters[len(remaining):])
	q.waiters = remaining
}

// enqueueLocked queues a job and starts the writer if it is idle. A snapshot
// save queued behind another pending save replaces it, since both carry the
// full transcript. Clears are never merged. Returns the seq of the job that
// will carry the write.
func (m *Manager) enqueueLocked(ctx context.Context, op mirrorOp, snapshot []string) uint64 {
	jobCtx := context.WithoutCancel(ctx)
	q := &m.mirror

	if op == mirrorSave && len(q.pending) > 0 {
		last := q.pending[len(q.pending)-1]
		if last.op == mirrorSave {
			last.snapshot = snapshot
			last.ctx = jobCtx
			if span := observability.SpanFromContext(ctx); span != nil {
				span.AddEvent(observability.EventMirrorCoalesced,
					observability.Int64(observability.AttrMemoryMirrorGeneration, int64(last.seq)),
				)
			}
			return last.seq
		}
	}

	q.lastSeq++
	q.pending = append(q.pending, &mirrorJob{
		seq:      q.lastSeq,
		op:       op,
		snapshot: snapshot,
		ctx:      jobCtx,
	})
	if !q.running {
		q.running = true
		go m.drain()
	}
	return q.lastSeq
}

// drain runs queued jobs one at a time until the queue is empty.
func (m *Manager) drain() {
	for {
		m.mu.Lock()
		q := &m.mirror
		if len(q.pending) == 0 {
			q.running = false
			m.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		m.mu.Unlock()

		err := m.run(job)

		m.mu.Lock()
		q.complete(job.seq, err)
		m.mu.Unlock()
	}
}

func (m *Manager) run(job *mirrorJob) error {
	ctx := job.ctx
	if m.mirrorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.mirrorTimeout)
		defer cancel()
	}

	ctx, span := m.startSpan(ctx, observability.SpanMemoryMirror,
		observability.String(observability.AttrMemoryMirrorOp, job.op.String()),
		observability.Int64(observability.AttrMemoryMirrorGeneration, int64(job.seq)),
	)
	defer endSpan(span)

	timer := utils.NewTimer()
	var err error
	switch job.op {
	case mirrorClear:
		err = m.ctxStore.Clear(ctx)
	default:
		err = m.ctxStore.Save(ctx, storage.HistoryKey, job.snapshot)
	}
	timer.Stop()

	m.recordMirror(ctx, span, job, timer, err)
	if err != nil && job.op == mirrorSave && m.policy == MirrorAsync && m.onMirrorError != nil {
		m.onMirrorError(err)
	}
	return err
}

func (m *Manager) recordMirror(ctx context.Context, span observability.Span, job *mirrorJob, timer *utils.Timer, err error) {
	if m.observer == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "mirror "+job.op.String()+" failed")
		m.observer.Counter(observability.MetricMemoryMirrorFailures).Add(ctx, 1,
			observability.String(observability.AttrMemoryMirrorOp, job.op.String()),
		)
		// Clear failures are surfaced by ClearHistory itself.
		if job.op == mirrorSave {
			m.observer.Error(ctx, "history mirror failed",
				observability.String(observability.AttrMemoryManagerID, m.id),
				observability.Int64(observability.AttrMemoryMirrorGeneration, int64(job.seq)),
				observability.Int(observability.AttrMemoryTotalMessages, len(job.snapshot)),
				observability.Error(err),
			)
		}
	} else {
		span.SetStatus(observability.StatusOK, "")
		m.observer.Debug(ctx, "history mirrored",
			observability.String(observability.AttrMemoryManagerID, m.id),
			observability.String(observability.AttrMemoryMirrorOp, job.op.String()),
			observability.Int(observability.AttrMemoryTotalMessages, len(job.snapshot)),
			observability.Duration(observability.AttrDuration, timer.GetDuration()),
		)
	}

	m.observer.Counter(observability.MetricMemoryMirrorCount).Add(ctx, 1,
		observability.String(observability.AttrMemoryMirrorOp, job.op.String()),
		observability.String(observability.AttrStatus, status),
	)
	m.observer.Histogram(observability.MetricMemoryMirrorDuration).Record(ctx, timer.GetDuration().Seconds(),
		observability.String(observability.AttrMemoryMirrorOp, job.op.String()),
	)
}
