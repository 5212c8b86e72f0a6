// Package jobengine is a concurrent job-execution substrate: a pool of
// workers pulling from a pluggable queue, backed by per-worker
// work-stealing deques, with pluggable metrics, logging, and diagnostics
// facades layered on top.
package jobengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-foundations/jobengine/diagnostics"
	"github.com/go-foundations/jobengine/jobcore"
	"github.com/go-foundations/jobengine/jobqueue"
	"github.com/go-foundations/jobengine/logging"
	"github.com/go-foundations/jobengine/metrics"
	"github.com/go-foundations/jobengine/stealing"
)

// Option configures a Pool at construction time, applied in New before
// the pool's first Start.
type Option func(*Pool)

// WithQueue replaces the pool's default MutexQueue with q.
func WithQueue(q jobqueue.Queue) Option {
	return func(p *Pool) { p.queue = q }
}

// WithConfig replaces the pool's Config wholesale.
func WithConfig(cfg Config) Option {
	return func(p *Pool) { p.cfg = cfg }
}

// WithTopology overrides the NUMA topology the stealing.Coordinator uses,
// bypassing stealing.Detect(). Mainly useful in tests that want a
// deterministic multi-node layout without real NUMA hardware.
func WithTopology(topo stealing.Topology) Option {
	return func(p *Pool) { p.topo = topo }
}

// WithMetrics sets the pool's metrics.Sink.
func WithMetrics(sink metrics.Sink) Option {
	return func(p *Pool) { p.cfg.MetricsSink = sink }
}

// WithLogging sets the pool's logging.Sink.
func WithLogging(sink logging.Sink) Option {
	return func(p *Pool) { p.cfg.LoggingSink = sink }
}

// Pool owns a set of Workers, a shared jobqueue.Queue, and the
// stealing.Coordinator wiring their local deques together. It is the
// engine's single public entry point (spec.md's C11 Pool).
type Pool struct {
	title string
	cfg   Config

	mu      sync.Mutex
	cond    *sync.Cond
	queue   jobqueue.Queue
	workers []*Worker
	topo    stealing.Topology
	coord   *stealing.Coordinator

	started   atomic.Bool
	startedAt atomic.Int64

	ring        *diagnostics.Ring
	eventSeq    atomic.Uint64
	listenersMu sync.RWMutex
	listeners   []diagnostics.Listener
}

// New builds a Pool titled title with no workers yet. Call AddWorker(s)
// and Start to put it to work.
func New(title string, opts ...Option) *Pool {
	p := &Pool{
		title: title,
		cfg:   DefaultConfig(title),
		queue: jobqueue.NewMutexQueue(),
		topo:  stealing.Detect(),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	p.cfg = p.cfg.clamp()
	p.ring = diagnostics.NewRing(p.cfg.EventRingCapacity)
	return p
}

// Title returns the pool's name, used as the prefix for every metric it
// emits (metrics.Name).
func (p *Pool) Title() string { return p.title }

// AddWorker appends one worker under policy. If the pool is already
// started, the new worker is launched immediately.
func (p *Pool) AddWorker(policy WorkerPolicy) *Worker {
	p.mu.Lock()
	id := len(p.workers)
	w := newWorker(id, policy, p)
	p.workers = append(p.workers, w)
	running := p.started.Load()
	p.mu.Unlock()

	if running {
		p.rebuildCoordinator()
		_ = w.start(context.Background())
	}
	return w
}

// AddWorkers appends n workers under the same policy.
func (p *Pool) AddWorkers(n int, policy WorkerPolicy) []*Worker {
	out := make([]*Worker, n)
	for i := range out {
		out[i] = p.AddWorker(policy)
	}
	return out
}

// Start transitions the pool from not-started to started, launching
// every worker added so far. Idempotent: calling Start on an already
// started pool returns ErrAlreadyStarted and does nothing else. On any
// worker's launch failure, previously started workers in this call are
// stopped and the pool reverts to not-started.
func (p *Pool) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return jobcore.ErrAlreadyStarted
	}
	p.startedAt.Store(time.Now().UnixNano())
	p.rebuildCoordinator()

	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()

	started := make([]*Worker, 0, len(workers))
	for _, w := range workers {
		if err := w.start(context.Background()); err != nil {
			for _, s := range started {
				s.stop()
			}
			p.started.Store(false)
			return err
		}
		started = append(started, w)
	}
	return nil
}

// Stop halts every worker. If immediate is true the shared queue is
// drained first, discarding anything still pending; otherwise pending jobs
// stay in the queue undelivered. Either way each worker finishes its
// current job and exits at its next loop check. Safe to call from any
// goroutine, including from inside a job running on one of this pool's
// own workers. Idempotent: a second call on an already-stopped pool is a
// no-op.
func (p *Pool) Stop(immediate bool) {
	if !p.started.CompareAndSwap(true, false) {
		return
	}
	if immediate {
		if q := p.activeQueue(); q != nil {
			q.Drain()
		}
	}

	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(workers))
	for _, w := range workers {
		w := w
		go func() {
			defer wg.Done()
			w.stop()
		}()
	}
	wg.Wait()
}

// Enqueue submits job to the pool's shared queue. Returns ErrNotStarted
// if the pool hasn't been started yet.
func (p *Pool) Enqueue(job jobcore.Job) error {
	if !p.started.Load() {
		return jobcore.ErrNotStarted
	}
	q := p.activeQueue()
	if q == nil {
		return jobcore.ErrNotStarted
	}
	if err := q.Enqueue(job); err != nil {
		p.cfg.MetricsSink.Counter(metrics.Name(p.title, metrics.JobsRejected), 1, nil)
		return err
	}
	p.cfg.MetricsSink.Counter(metrics.Name(p.title, metrics.JobsSubmitted), 1, nil)
	p.emitEvent(diagnostics.Event{JobID: job.ID(), JobName: job.Name(), Kind: diagnostics.Enqueued, TSteady: time.Now(), TWall: time.Now()})
	return nil
}

// EnqueueBatch submits every job in jobs, stopping at the first error.
func (p *Pool) EnqueueBatch(jobs []jobcore.Job) error {
	for _, job := range jobs {
		if err := p.Enqueue(job); err != nil {
			return err
		}
	}
	return nil
}

// Reconfigure atomically swaps the pool's shared queue for q, blocking
// until every worker's currentJob is nil so no job is ever mid-flight
// against both the old and new queue at once (spec.md §5's
// queue-replacement safety invariant).
func (p *Pool) Reconfigure(q jobqueue.Queue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.allIdleLocked() {
		p.cond.Wait()
	}
	p.queue = q
}

func (p *Pool) allIdleLocked() bool {
	for _, w := range p.workers {
		if w.CurrentJob() != nil {
			return false
		}
	}
	return true
}

func (p *Pool) notifyIdle() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) activeQueue() jobqueue.Queue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

func (p *Pool) stealCoordinator() *stealing.Coordinator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coord
}

// rebuildCoordinator (re)builds the stealing.Coordinator over every
// worker's local deque. Called on Start and whenever AddWorker runs
// against an already-started pool, since the deque slice's length and
// the workerNode mapping both depend on the current worker count.
func (p *Pool) rebuildCoordinator() {
	p.mu.Lock()
	defer p.mu.Unlock()

	deques := make([]*stealing.Deque, 0, len(p.workers))
	for _, w := range p.workers {
		if w.localDeque == nil {
			w.stealIndex.Store(-1)
			continue
		}
		w.stealIndex.Store(int32(len(deques)))
		deques = append(deques, w.localDeque)
	}
	if len(deques) < 2 {
		// Stealing needs at least two participating workers to have a
		// victim to pick from.
		p.coord = nil
		return
	}

	nodes := len(p.topo.Nodes)
	if nodes == 0 {
		nodes = 1
	}
	workerNode := func(id int) int { return id % nodes }

	cfg := stealing.DefaultConfig()
	cfg.MaxAttempts = p.cfg.StealMaxAttempts
	p.coord = stealing.NewCoordinator(p.topo, deques, workerNode, cfg)
}

func (p *Pool) emitEvent(e diagnostics.Event) {
	e.EventID = p.eventSeq.Add(1)
	p.ring.Push(e)
	p.listenersMu.RLock()
	defer p.listenersMu.RUnlock()
	for _, l := range p.listeners {
		l.OnEvent(e)
	}
}

// AddListener registers l to receive every future diagnostics.Event
// synchronously, on whichever worker goroutine produced it.
func (p *Pool) AddListener(l diagnostics.Listener) {
	p.listenersMu.Lock()
	p.listeners = append(p.listeners, l)
	p.listenersMu.Unlock()
}

// DiagnosticsSnapshot is a point-in-time read of pool health, matching
// spec.md §6's thread dump / active-jobs / pending-jobs / bottleneck /
// health surface.
type DiagnosticsSnapshot struct {
	Uptime       time.Duration
	Workers      []diagnostics.WorkerInfo
	ActiveJobs   []diagnostics.JobInfo
	PendingJobs  int
	RecentEvents []diagnostics.Event
	Bottleneck   diagnostics.Report
	Health       diagnostics.Status
}

// Diagnostics assembles a DiagnosticsSnapshot from the pool's current
// state: every worker's stats and current job, the shared queue's depth,
// the event ring's contents, and the bottleneck/health verdicts derived
// from them.
func (p *Pool) Diagnostics() DiagnosticsSnapshot {
	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	q := p.queue
	startedAt := p.startedAt.Load()
	p.mu.Unlock()

	infos := make([]diagnostics.WorkerInfo, len(workers))
	var active []diagnostics.JobInfo
	utils := make([]float64, len(workers))
	var utilSum float64

	for i, w := range workers {
		st := w.Stats()
		infos[i] = diagnostics.WorkerInfo{
			ID: w.id, State: w.State().String(),
			JobsDone: st.JobsDone, JobsFailed: st.JobsFailed,
			BusyNs: st.BusyNs, IdleNs: st.IdleNs,
		}
		util := 0.0
		if total := st.BusyNs + st.IdleNs; total > 0 {
			util = float64(st.BusyNs) / float64(total)
		}
		utils[i] = util
		utilSum += util
		if job := w.CurrentJob(); job != nil {
			active = append(active, diagnostics.JobInfo{ID: job.ID(), Name: job.Name(), EnqueuedAt: job.EnqueuedAt(), WorkerID: w.id})
		}
	}

	pending := 0
	if q != nil {
		pending = q.Size()
	}

	utilization := 0.0
	if len(utils) > 0 {
		utilization = utilSum / float64(len(utils))
	}

	snap := diagnostics.Snapshot{
		QueueSaturation:   saturation(q, pending),
		Utilization:       utilization,
		WorkerUtilization: utils,
	}
	report := diagnostics.Analyse(snap, p.cfg.Thresholds)
	health := diagnostics.Check([]diagnostics.ComponentStatus{
		{Name: "queue", Status: healthFromReport(report)},
	})

	var uptime time.Duration
	if startedAt > 0 {
		uptime = time.Since(time.Unix(0, startedAt))
	}

	return DiagnosticsSnapshot{
		Uptime:       uptime,
		Workers:      infos,
		ActiveJobs:   active,
		PendingJobs:  pending,
		RecentEvents: p.ring.Snapshot(),
		Bottleneck:   report,
		Health:       health,
	}
}

// saturation estimates queue fullness against a soft reference capacity,
// since this engine's queues are unbounded: a hint-only size (the
// lock-free queue's Capabilities().ExactSize == false) is treated as
// either idle or moderately loaded, never precisely measured.
func saturation(q jobqueue.Queue, pending int) float64 {
	if q == nil {
		return 0
	}
	if !q.Capabilities().ExactSize {
		if pending > 0 {
			return 0.5
		}
		return 0
	}
	const reference = 256.0
	sat := float64(pending) / reference
	if sat > 1 {
		sat = 1
	}
	return sat
}

func healthFromReport(r diagnostics.Report) diagnostics.Status {
	switch r.Verdict {
	case diagnostics.NoBottleneck:
		return diagnostics.Healthy
	case diagnostics.QueueFull, diagnostics.WorkerStarvation:
		return diagnostics.Unhealthy
	default:
		return diagnostics.Degraded
	}
}
