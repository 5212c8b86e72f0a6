package jobqueue

import (
	"context"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/go-foundations/jobengine/hazard"
	"github.com/go-foundations/jobengine/jobcore"
)

// lfNode is a Michael-Scott queue node. The head node is always a dummy
// that never holds a job; data moves from Some to None exactly once, on
// the dequeue that consumes it.
type lfNode struct {
	job  jobcore.Job
	next atomic.Pointer[lfNode]
}

// LockFreeQueue is a Michael-Scott two-pointer linked queue reclaimed with
// hazard pointers. Enqueue never blocks; dequeue loops under contention but
// never takes a lock. size() is an approximation only — see Capabilities.
type LockFreeQueue struct {
	head    atomic.Pointer[lfNode]
	tail    atomic.Pointer[lfNode]
	size    atomic.Int64
	stopped atomic.Bool
	domain  *hazard.Domain
}

// NewLockFreeQueue returns an empty, running lock-free queue.
func NewLockFreeQueue() *LockFreeQueue {
	q := &LockFreeQueue{domain: hazard.NewDomain()}
	dummy := &lfNode{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// acquireHandle registers a fresh handle for a single TryDequeue call.
// There's no goroutine-affinity in the Queue interface to hold a handle
// across calls, so each call gets its own and releaseHandle closes it
// before returning — see hazard.Handle's doc comment.
func (q *LockFreeQueue) acquireHandle() *hazard.Handle {
	return q.domain.Acquire()
}

func (q *LockFreeQueue) releaseHandle(h *hazard.Handle) {
	h.Close()
}

// Enqueue allocates a node and CASes it onto the tail. On CAS failure
// (another producer won the race, or the tail pointer lags the true end of
// the list), any goroutine that observes a non-nil tail.next helps swing
// tail forward before retrying its own insert — the standard Michael-Scott
// helping pattern, which is what makes enqueue itself never block on
// another producer finishing.
func (q *LockFreeQueue) Enqueue(job jobcore.Job) error {
	if job == nil {
		return jobcore.ErrInvalidArgument
	}
	if q.stopped.Load() {
		return jobcore.ErrQueueStopped
	}
	n := &lfNode{job: job}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tail, n)
				q.size.Add(1)
				return nil
			}
		} else {
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// TryDequeue implements spec §4.4's loop: protect head and head.next with
// hazard slots 0 and 1, detect empty (head==tail, next==nil), help advance
// a lagging tail (head==tail, next!=nil), else CAS head forward and retire
// the old head.
func (q *LockFreeQueue) TryDequeue() (jobcore.Job, error) {
	h := q.acquireHandle()
	defer q.releaseHandle(h)

	for {
		headPtr := h.Protect(0, func() unsafe.Pointer { return unsafe.Pointer(q.head.Load()) })
		head := (*lfNode)(headPtr)
		tail := q.tail.Load()
		nextPtr := h.Protect(1, func() unsafe.Pointer { return unsafe.Pointer(head.next.Load()) })
		next := (*lfNode)(nextPtr)

		if head != q.head.Load() {
			continue // head moved under us, retry
		}
		if next == nil {
			return nil, jobcore.ErrQueueEmpty
		}
		if head == tail {
			// tail lags; help it catch up before retrying
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		job := next.job
		if q.head.CompareAndSwap(head, next) {
			q.size.Add(-1)
			retiredHead := head
			h.Retire(unsafe.Pointer(retiredHead), func() { _ = retiredHead })
			return job, nil
		}
	}
}

// Dequeue has no native blocking primitive — a lock-free queue must not
// park a goroutine on a condvar without reintroducing the mutex it's
// avoiding — so it polls TryDequeue with a short sleep between attempts
// until a job appears, ctx is done, or the queue is stopped and empty.
func (q *LockFreeQueue) Dequeue(ctx context.Context) (jobcore.Job, error) {
	for {
		job, err := q.TryDequeue()
		if err == nil {
			return job, nil
		}
		if q.stopped.Load() {
			return nil, jobcore.ErrQueueEmpty
		}
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

// Drain pops every job currently reachable. Under concurrent producers this
// is a best-effort snapshot, not an atomic swap, matching a lock-free
// queue's no-global-lock design.
func (q *LockFreeQueue) Drain() []jobcore.Job {
	var out []jobcore.Job
	for {
		job, err := q.TryDequeue()
		if err != nil {
			return out
		}
		out = append(out, job)
	}
}

// StopWaiting sets the stopped flag. Blocked Dequeue callers observe it on
// their next poll iteration and return ErrQueueEmpty once genuinely empty.
func (q *LockFreeQueue) StopWaiting() {
	q.stopped.Store(true)
}

// Resume clears the stopped flag, allowing the queue to accept work again.
func (q *LockFreeQueue) Resume() {
	q.stopped.Store(false)
}

// Size returns the approximate size hint; see Capabilities.ExactSize.
func (q *LockFreeQueue) Size() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

func (q *LockFreeQueue) Empty() bool {
	return q.Size() == 0
}

func (q *LockFreeQueue) Capabilities() jobcore.Capabilities {
	return jobcore.Capabilities{
		ExactSize:            false,
		AtomicEmptyCheck:      false,
		LockFree:              true,
		WaitFree:              false,
		SupportsBatch:        true,
		SupportsBlockingWait: false,
		SupportsStop:          true,
	}
}
