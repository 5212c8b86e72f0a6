package jobengine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-foundations/jobengine/diagnostics"
	"github.com/go-foundations/jobengine/jobcore"
	"github.com/go-foundations/jobengine/logging"
	"github.com/go-foundations/jobengine/metrics"
	"github.com/go-foundations/jobengine/stealing"
)

// WorkerState is a worker's lifecycle state, held as an atomic.Int32 so
// Diagnostics() can read it without taking a lock.
type WorkerState int32

const (
	Idle WorkerState = iota
	Active
	Stopping
	Stopped
)

func (s WorkerState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Active:
		return "Active"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// WorkerStats is a point-in-time snapshot of one worker's counters.
type WorkerStats struct {
	JobsDone   int64
	JobsFailed int64
	BusyNs     int64
	IdleNs     int64
}

type jobBox struct {
	job jobcore.Job
}

// Worker pulls jobs from three sources in order — its own local deque,
// the pool's shared queue, then the pool's stealing.Coordinator — and
// falls back to a bounded spin-then-sleep hybrid wait when all three come
// up empty, never blocking on the shared queue's Dequeue (spec.md §4.8).
type Worker struct {
	id     int
	policy WorkerPolicy
	pool   *Pool

	state      atomic.Int32
	currentJob atomic.Pointer[jobBox]

	localDeque *stealing.Deque
	stealIndex atomic.Int32 // index into the pool's stealing.Coordinator deque slice, -1 if not participating
	cancel     *jobcore.CancellationToken

	jobsDone   atomic.Int64
	jobsFailed atomic.Int64
	busyNs     atomic.Int64
	idleNs     atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newWorker(id int, policy WorkerPolicy, pool *Pool) *Worker {
	if policy.LocalDequeCapacity <= 0 {
		policy.LocalDequeCapacity = 256
	}
	w := &Worker{
		id:     id,
		policy: policy,
		pool:   pool,
		cancel: jobcore.NewCancellationToken(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.state.Store(int32(Idle))
	w.stealIndex.Store(-1)
	if policy.EnableStealing {
		w.localDeque = stealing.NewDeque(policy.LocalDequeCapacity)
	}
	return w
}

// start launches the worker's main loop. In this engine a goroutine
// spawn never fails, but start still returns an error so Pool.Start can
// preserve the original's "roll back previously-started workers on any
// failure" control flow, even though that path is currently unreachable.
func (w *Worker) start(ctx context.Context) error {
	go w.run(ctx)
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)
	spin := 0
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		job, ok := w.acquireJob(ctx)
		if !ok {
			if spin < w.pool.cfg.SpinIterations {
				runtime.Gosched()
				spin++
				continue
			}
			idleStart := time.Now()
			select {
			case <-w.stopCh:
				return
			case <-time.After(w.pool.cfg.SpinSleep):
			}
			w.idleNs.Add(int64(time.Since(idleStart)))
			spin = 0
			continue
		}
		spin = 0
		w.execute(ctx, job)
	}
}

// acquireJob implements the three job sources spec.md §4.8 numbers 1-3:
// local deque pop, global TryDequeue, then a steal attempt.
func (w *Worker) acquireJob(ctx context.Context) (jobcore.Job, bool) {
	if w.localDeque != nil {
		if job, ok := w.localDeque.PopBottom(); ok {
			return job, true
		}
	}

	q := w.pool.activeQueue()
	if q == nil {
		w.pool.emitEvent(diagnostics.Event{Kind: diagnostics.Failed, WorkerID: w.id, TSteady: time.Now(), TWall: time.Now(), Err: jobcore.ErrNotStarted})
		return nil, false
	}
	if job, err := q.TryDequeue(); err == nil {
		return job, true
	}

	if idx := w.stealIndex.Load(); idx >= 0 {
		coord := w.pool.stealCoordinator()
		if coord != nil {
			if job, ok := coord.Steal(ctx, int(idx)); ok {
				return job, true
			}
		}
	}
	return nil, false
}

func (w *Worker) execute(ctx context.Context, job jobcore.Job) {
	w.state.Store(int32(Active))
	w.currentJob.Store(&jobBox{job: job})

	start := time.Now()
	wait := start.Sub(job.EnqueuedAt())
	w.pool.emitEvent(diagnostics.Event{
		JobID: job.ID(), JobName: job.Name(), Kind: diagnostics.Started,
		TSteady: start, TWall: start, WorkerID: w.id, WaitNs: wait.Nanoseconds(),
	})

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = jobcore.JobExecutionFailed(fmt.Errorf("panic: %v", r))
			}
		}()
		runErr = job.Run(ctx)
	}()

	exec := time.Since(start)
	w.busyNs.Add(int64(exec))
	w.currentJob.Store(nil)
	w.state.Store(int32(Idle))
	w.pool.notifyIdle()

	cfg := w.pool.cfg
	switch {
	case runErr == nil:
		w.jobsDone.Add(1)
		w.pool.emitEvent(diagnostics.Event{JobID: job.ID(), JobName: job.Name(), Kind: diagnostics.Completed, TSteady: time.Now(), TWall: time.Now(), WorkerID: w.id, ExecNs: exec.Nanoseconds()})
		cfg.MetricsSink.Counter(metrics.Name(cfg.Title, metrics.JobsCompleted), 1, nil)
	case job.Token() != nil && job.Token().IsCancelled():
		w.jobsFailed.Add(1)
		w.pool.emitEvent(diagnostics.Event{JobID: job.ID(), JobName: job.Name(), Kind: diagnostics.Cancelled, TSteady: time.Now(), TWall: time.Now(), WorkerID: w.id, ExecNs: exec.Nanoseconds(), Err: runErr})
		cfg.MetricsSink.Counter(metrics.Name(cfg.Title, metrics.JobsCancelled), 1, nil)
	default:
		w.jobsFailed.Add(1)
		w.pool.emitEvent(diagnostics.Event{JobID: job.ID(), JobName: job.Name(), Kind: diagnostics.Failed, TSteady: time.Now(), TWall: time.Now(), WorkerID: w.id, ExecNs: exec.Nanoseconds(), Err: runErr})
		cfg.MetricsSink.Counter(metrics.Name(cfg.Title, metrics.JobsFailed), 1, nil)
		cfg.LoggingSink.Log(logLevelForFailure(runErr), time.Now(), fmt.Sprintf("job %q failed: %v", job.Name(), runErr))
	}
	cfg.MetricsSink.Histogram(metrics.Name(cfg.Title, metrics.JobDurationSeconds), exec.Seconds(), nil)
}

// stop transitions the worker through Stopping to Stopped and blocks
// until its goroutine has exited. Idempotent: a second call observes the
// same closed channels and returns immediately.
func (w *Worker) stop() {
	w.stopOnce.Do(func() {
		w.state.Store(int32(Stopping))
		close(w.stopCh)
	})
	<-w.doneCh
	w.cancel.Cancel()
	w.state.Store(int32(Stopped))
}

// CurrentJob returns the job this worker is presently executing, or nil.
func (w *Worker) CurrentJob() jobcore.Job {
	b := w.currentJob.Load()
	if b == nil {
		return nil
	}
	return b.job
}

func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		JobsDone:   w.jobsDone.Load(),
		JobsFailed: w.jobsFailed.Load(),
		BusyNs:     w.busyNs.Load(),
		IdleNs:     w.idleNs.Load(),
	}
}

func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func logLevelForFailure(err error) logging.Level {
	if jerr, ok := err.(*jobcore.Error); ok && jerr.Code == jobcore.CodeCancelled {
		return logging.Warn
	}
	return logging.Error
}
