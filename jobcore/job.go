package jobcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

var jobIDSeq atomic.Uint64

// NextJobID returns a fresh, process-wide monotonic job id. Job
// implementations that don't carry their own id should call this once at
// construction and cache the result — ids are immutable after submission.
func NextJobID() uint64 {
	return jobIDSeq.Add(1)
}

// Job is the single capability the engine requires of a unit of work: a
// name, a stable id, the instant it was enqueued, an optional cancellation
// token, and a Run method. Concrete job types (callback jobs, data jobs,
// whatever a caller needs) implement this directly instead of sitting in a
// virtual-inheritance hierarchy.
type Job interface {
	// Run executes the job. It must poll Token().IsCancelled() at sensible
	// points if it wants to honor cooperative cancellation; nothing
	// preempts it.
	Run(ctx context.Context) error
	ID() uint64
	Name() string
	EnqueuedAt() time.Time
	// Token returns the job's cancellation token, or nil if it has none.
	Token() *CancellationToken
}

// FuncJob adapts a plain function into a Job. It is the concrete analogue
// of a single-purpose callback job: most callers that don't need a custom
// Job implementation can use this directly.
type FuncJob struct {
	id         uint64
	name       string
	enqueuedAt time.Time
	token      *CancellationToken
	fn         func(ctx context.Context) error
}

// NewFuncJob wraps fn as a Job. If token is nil, the job carries no
// cancellation token and Token() returns nil.
func NewFuncJob(name string, token *CancellationToken, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{
		id:         NextJobID(),
		name:       name,
		enqueuedAt: time.Now(),
		token:      token,
		fn:         fn,
	}
}

func (j *FuncJob) Run(ctx context.Context) error     { return j.fn(ctx) }
func (j *FuncJob) ID() uint64                        { return j.id }
func (j *FuncJob) Name() string                      { return j.name }
func (j *FuncJob) EnqueuedAt() time.Time              { return j.enqueuedAt }
func (j *FuncJob) Token() *CancellationToken          { return j.token }

// CancellationToken is a shared, cooperative cancel flag. Transitions only
// false -> true, and that transition is idempotent: calling Cancel twice
// has the same effect as calling it once. Registering a callback on an
// already-cancelled token fires it immediately, synchronously, on the
// registering goroutine.
type CancellationToken struct {
	cancelled atomic.Bool
	mu        sync.Mutex
	callbacks []func()
}

// NewCancellationToken returns a fresh, non-cancelled token.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

// IsCancelled reports whether Cancel has been called. Safe to call from any
// goroutine; once true it is visible to every subsequent caller everywhere
// (spec §8 "Cancellation propagation").
func (t *CancellationToken) IsCancelled() bool {
	return t.cancelled.Load()
}

// Cancel transitions the token to cancelled and synchronously runs every
// registered callback exactly once. Subsequent calls are no-ops.
func (t *CancellationToken) Cancel() {
	if !t.cancelled.CompareAndSwap(false, true) {
		return
	}
	t.mu.Lock()
	cbs := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// OnCancel registers cb to run when the token is cancelled. If the token is
// already cancelled, cb runs immediately and synchronously instead of being
// queued — the "register-or-fire" discipline from spec §9, implemented here
// as an append-or-fire check under the same mutex that Cancel drains under,
// so a concurrent Cancel can never race a registration into being dropped.
func (t *CancellationToken) OnCancel(cb func()) {
	if t.cancelled.Load() {
		cb()
		return
	}
	t.mu.Lock()
	if t.cancelled.Load() {
		t.mu.Unlock()
		cb()
		return
	}
	t.callbacks = append(t.callbacks, cb)
	t.mu.Unlock()
}
