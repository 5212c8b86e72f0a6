package jobqueue

import (
	"container/list"
	"context"
	"sync"

	"github.com/go-foundations/jobengine/jobcore"
)

// MutexQueue is an exact FIFO queue protected by a mutex and condition
// variable. Dequeue order matches enqueue order for a single producer
// (spec §8 "FIFO per single-priority mutex queue"). This is the queue the
// adaptive policy falls back to under AccuracyFirst/low contention, and the
// one every priority sub-queue in TypedQueue is built from.
type MutexQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   *list.List
	stopped bool
}

// NewMutexQueue returns an empty, running queue.
func NewMutexQueue() *MutexQueue {
	q := &MutexQueue{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *MutexQueue) Enqueue(job jobcore.Job) error {
	if job == nil {
		return jobcore.ErrInvalidArgument
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return jobcore.ErrQueueStopped
	}
	q.items.PushBack(job)
	q.mu.Unlock()
	q.cond.Signal()
	return nil
}

// Dequeue blocks until a job is available, the queue is stopped, or ctx is
// done. A stopped, empty queue returns ErrQueueEmpty, matching spec §4.3.
func (q *MutexQueue) Dequeue(ctx context.Context) (jobcore.Job, error) {
	// Translate ctx cancellation into a cond.Broadcast so the waiting
	// goroutine actually wakes up; sync.Cond has no native context support.
	if ctx != nil && ctx.Done() != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				q.cond.Broadcast()
			case <-done:
			}
		}()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Len() == 0 && !q.stopped {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return nil, jobcore.ErrQueueEmpty
	}
	front := q.items.Front()
	q.items.Remove(front)
	return front.Value.(jobcore.Job), nil
}

func (q *MutexQueue) TryDequeue() (jobcore.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Len() == 0 {
		return nil, jobcore.ErrQueueEmpty
	}
	front := q.items.Front()
	q.items.Remove(front)
	return front.Value.(jobcore.Job), nil
}

func (q *MutexQueue) Drain() []jobcore.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]jobcore.Job, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(jobcore.Job))
	}
	q.items.Init()
	return out
}

func (q *MutexQueue) StopWaiting() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Resume clears the stopped flag, allowing the queue to accept and serve
// work again.
func (q *MutexQueue) Resume() {
	q.mu.Lock()
	q.stopped = false
	q.mu.Unlock()
}

func (q *MutexQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *MutexQueue) Empty() bool {
	return q.Size() == 0
}

func (q *MutexQueue) Capabilities() jobcore.Capabilities {
	return jobcore.Capabilities{
		ExactSize:            true,
		AtomicEmptyCheck:      true,
		LockFree:              false,
		WaitFree:              false,
		SupportsBatch:        true,
		SupportsBlockingWait: true,
		SupportsStop:          true,
	}
}
