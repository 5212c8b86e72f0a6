// Package jobqueue implements the family of job queues the engine can be
// configured with: an exact mutex-guarded FIFO (C4), a lock-free MPMC queue
// (C5), a policy-switching adaptive wrapper over the two (C7), and
// priority/aging queues layered on top (C8, C9).
package jobqueue

import (
	"context"

	"github.com/go-foundations/jobengine/jobcore"
)

// Queue is the common interface every queue implementation in this package
// satisfies. Pool and Worker only depend on this interface, never on a
// concrete queue type, so a pool can be reconfigured from a mutex queue to
// a lock-free one at runtime (see AdaptiveQueue).
type Queue interface {
	// Enqueue adds job to the queue. Returns ErrQueueStopped if the queue
	// has been stopped, ErrInvalidArgument if job is nil.
	Enqueue(job jobcore.Job) error
	// Dequeue blocks until a job is available, the queue is stopped, or ctx
	// is done, whichever happens first.
	Dequeue(ctx context.Context) (jobcore.Job, error)
	// TryDequeue returns ErrQueueEmpty immediately if nothing is available.
	TryDequeue() (jobcore.Job, error)
	// Drain removes and returns every currently queued job. MutexQueue does
	// this atomically; LockFreeQueue pops until empty, so jobs enqueued
	// concurrently may or may not be included.
	Drain() []jobcore.Job
	// StopWaiting marks the queue stopped and wakes every blocked waiter.
	StopWaiting()
	// Size reports the number of queued jobs. Exactness is governed by
	// Capabilities().ExactSize.
	Size() int
	// Empty reports whether the queue currently holds no jobs.
	Empty() bool
	// Capabilities describes what this queue implementation guarantees.
	Capabilities() jobcore.Capabilities
}
