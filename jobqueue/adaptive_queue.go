package jobqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-foundations/jobengine/jobcore"
)

// Policy selects how AdaptiveQueue picks its backing queue.
type Policy int

const (
	// AccuracyFirst always backs onto a MutexQueue.
	AccuracyFirst Policy = iota
	// PerformanceFirst always backs onto a LockFreeQueue.
	PerformanceFirst
	// Balanced switches between the two based on observed concurrency.
	Balanced
	// Manual never switches on its own; the caller drives SetMode.
	Manual
)

// Mode identifies which concrete queue is currently backing an
// AdaptiveQueue.
type Mode int

const (
	ModeMutex Mode = iota
	ModeLockFree
)

// Resolved hysteresis policy for Balanced mode (spec §9 Open Question):
// every adaptiveSampleWindow operations, the queue computes the average
// number of operations that were in flight concurrently with each other
// over that window. Above balancedConcurrencyThreshold it moves to
// ModeLockFree; at or below it, ModeMutex. A switch is never considered
// more often than balancedMinSwitchInterval, so a single noisy window can't
// thrash the mode back and forth.
const (
	adaptiveSampleWindow         = 64
	balancedConcurrencyThreshold = 2.0
	balancedMinSwitchInterval    = 100 * time.Millisecond
)

// AdaptiveStats reports time-in-mode and switch-count statistics.
type AdaptiveStats struct {
	SwitchCount      int64
	TimeInMutexNs    int64
	TimeInLockFreeNs int64
}

// AdaptiveQueue wraps MutexQueue and LockFreeQueue behind the Queue
// interface, picking between them per Policy and migrating in-flight
// elements across a mode switch without losing any of them.
type AdaptiveQueue struct {
	policy Policy

	migrationMu sync.Mutex
	mode        atomic.Int32

	mutexQ    *MutexQueue
	lockfreeQ *LockFreeQueue

	guardDepth atomic.Int32

	inflight      atomic.Int32
	windowOps     atomic.Int64
	windowConcSum atomic.Int64
	lastSwitchNs  atomic.Int64

	switchCount      atomic.Int64
	lastModeChangeNs atomic.Int64
	timeInMutexNs    atomic.Int64
	timeInLockFreeNs atomic.Int64
}

// NewAdaptiveQueue creates an adaptive queue under the given policy. It
// starts in ModeMutex except under PerformanceFirst, which starts in
// ModeLockFree.
func NewAdaptiveQueue(policy Policy) *AdaptiveQueue {
	q := &AdaptiveQueue{
		policy:    policy,
		mutexQ:    NewMutexQueue(),
		lockfreeQ: NewLockFreeQueue(),
	}
	q.lastModeChangeNs.Store(time.Now().UnixNano())
	if policy == PerformanceFirst {
		q.mode.Store(int32(ModeLockFree))
	}
	return q
}

// Mode returns the currently active backing queue kind.
func (q *AdaptiveQueue) Mode() Mode {
	return Mode(q.mode.Load())
}

func (q *AdaptiveQueue) backing(mode Mode) Queue {
	if mode == ModeLockFree {
		return q.lockfreeQ
	}
	return q.mutexQ
}

func (q *AdaptiveQueue) active() Queue {
	return q.backing(q.Mode())
}

// AccuracyGuard temporarily forces ModeMutex. Guards are reference counted:
// nested guards compose, and the forced mode lifts only once every
// outstanding guard has been released.
type AccuracyGuard struct {
	q        *AdaptiveQueue
	released atomic.Bool
}

// Release ends this guard's hold on accuracy mode. Idempotent.
func (g *AccuracyGuard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.q.releaseAccuracyGuard()
	}
}

// ForceAccuracy returns a guard that pins the queue to ModeMutex until
// released, regardless of Policy.
func (q *AdaptiveQueue) ForceAccuracy() *AccuracyGuard {
	if q.guardDepth.Add(1) == 1 {
		q.migrate(ModeMutex)
	}
	return &AccuracyGuard{q: q}
}

func (q *AdaptiveQueue) releaseAccuracyGuard() {
	if q.guardDepth.Add(-1) != 0 {
		return
	}
	switch q.policy {
	case PerformanceFirst:
		q.migrate(ModeLockFree)
	case Balanced:
		q.evaluateBalanced(true)
	}
}

// SetMode forces a mode switch under Manual policy. It is a no-op under any
// other policy, since those drive mode themselves.
func (q *AdaptiveQueue) SetMode(mode Mode) {
	if q.policy != Manual {
		return
	}
	if q.guardDepth.Load() > 0 {
		return
	}
	q.migrate(mode)
}

// migrate drains the currently active queue and replays every drained job
// into the target queue before switching which one serves new calls, so no
// enqueued-but-undelivered job is lost across a switch (spec §8 "Adaptive
// switch... no job loss across migration").
func (q *AdaptiveQueue) migrate(to Mode) {
	q.migrationMu.Lock()
	defer q.migrationMu.Unlock()

	from := Mode(q.mode.Load())
	if from == to {
		return
	}

	now := time.Now().UnixNano()
	last := q.lastModeChangeNs.Swap(now)
	elapsed := now - last
	if from == ModeMutex {
		q.timeInMutexNs.Add(elapsed)
	} else {
		q.timeInLockFreeNs.Add(elapsed)
	}

	items := q.backing(from).Drain()
	q.mode.Store(int32(to))
	dest := q.backing(to)
	for _, it := range items {
		_ = dest.Enqueue(it)
	}
	q.switchCount.Add(1)
	q.lastSwitchNs.Store(now)
}

// recordOp tracks one operation's concurrency footprint for the Balanced
// heuristic and re-evaluates the mode every adaptiveSampleWindow ops.
func (q *AdaptiveQueue) recordOp(fn func() error) error {
	if q.policy != Balanced || q.guardDepth.Load() > 0 {
		return fn()
	}
	concurrent := q.inflight.Add(1)
	defer q.inflight.Add(-1)

	q.windowConcSum.Add(int64(concurrent))
	ops := q.windowOps.Add(1)

	err := fn()

	if ops >= adaptiveSampleWindow {
		q.evaluateBalanced(false)
	}
	return err
}

func (q *AdaptiveQueue) evaluateBalanced(force bool) {
	ops := q.windowOps.Swap(0)
	concSum := q.windowConcSum.Swap(0)
	if ops == 0 {
		return
	}
	now := time.Now().UnixNano()
	if !force && now-q.lastSwitchNs.Load() < int64(balancedMinSwitchInterval) {
		return
	}
	avgConcurrency := float64(concSum) / float64(ops)
	if avgConcurrency > balancedConcurrencyThreshold {
		q.migrate(ModeLockFree)
	} else {
		q.migrate(ModeMutex)
	}
}

func (q *AdaptiveQueue) Enqueue(job jobcore.Job) error {
	return q.recordOp(func() error { return q.active().Enqueue(job) })
}

func (q *AdaptiveQueue) Dequeue(ctx context.Context) (jobcore.Job, error) {
	var job jobcore.Job
	err := q.recordOp(func() error {
		var e error
		job, e = q.active().Dequeue(ctx)
		return e
	})
	return job, err
}

func (q *AdaptiveQueue) TryDequeue() (jobcore.Job, error) {
	var job jobcore.Job
	err := q.recordOp(func() error {
		var e error
		job, e = q.active().TryDequeue()
		return e
	})
	return job, err
}

func (q *AdaptiveQueue) Drain() []jobcore.Job {
	return q.active().Drain()
}

func (q *AdaptiveQueue) StopWaiting() {
	q.mutexQ.StopWaiting()
	q.lockfreeQ.StopWaiting()
}

func (q *AdaptiveQueue) Size() int {
	return q.active().Size()
}

func (q *AdaptiveQueue) Empty() bool {
	return q.active().Empty()
}

func (q *AdaptiveQueue) Capabilities() jobcore.Capabilities {
	return q.active().Capabilities()
}

// Stats returns time-in-mode and switch-count counters.
func (q *AdaptiveQueue) Stats() AdaptiveStats {
	return AdaptiveStats{
		SwitchCount:      q.switchCount.Load(),
		TimeInMutexNs:    q.timeInMutexNs.Load(),
		TimeInLockFreeNs: q.timeInLockFreeNs.Load(),
	}
}
