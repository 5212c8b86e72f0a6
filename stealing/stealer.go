package stealing

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-foundations/jobengine/jobcore"
)

// Coordinator ties a pool's per-worker deques, the detected NUMA topology,
// a victim-selection Policy, a BackoffStrategy, and an AffinityTracker
// together into the single entry point a Worker calls when its own deque
// and the shared queue have both come up empty: Steal.
type Coordinator struct {
	topo       Topology
	deques     []*Deque
	workerNode WorkerNodeFunc
	affinity   *AffinityTracker
	cfg        Config

	attempts atomic.Int64
	steals   atomic.Int64
}

// NewCoordinator builds a Coordinator over deques, one per worker, indexed
// by worker id. workerNode maps a worker id to the NUMA node it runs on;
// pass a func that always returns 0 if topology doesn't matter.
func NewCoordinator(topo Topology, deques []*Deque, workerNode WorkerNodeFunc, cfg Config) *Coordinator {
	if cfg.Policy == nil {
		cfg.Policy = NewRandomPolicy()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff{Base: 50 * time.Microsecond, Max: 5 * time.Millisecond}
	}
	if cfg.MaxStealBatch <= 0 {
		cfg.MaxStealBatch = 32
	}
	if cfg.MinStealBatch <= 0 {
		cfg.MinStealBatch = 1
	}
	return &Coordinator{
		topo:       topo,
		deques:     deques,
		workerNode: workerNode,
		affinity:   NewAffinityTracker(len(deques)),
		cfg:        cfg,
	}
}

// Affinity exposes the coordinator's cooperation tracker, e.g. for
// diagnostics snapshots.
func (c *Coordinator) Affinity() *AffinityTracker { return c.affinity }

// Steal attempts to take a single job from another worker's deque,
// retrying with backoff up to cfg.MaxAttempts times (0 means unlimited
// until ctx is done). Returns false if no job could be stolen.
func (c *Coordinator) Steal(ctx context.Context, workerID int) (jobcore.Job, bool) {
	numWorkers := len(c.deques)
	for attempt := 0; c.cfg.MaxAttempts <= 0 || attempt < c.cfg.MaxAttempts; attempt++ {
		c.attempts.Add(1)
		victim, ok := c.cfg.Policy.SelectVictim(workerID, numWorkers)
		if !ok {
			return nil, false
		}
		if job, ok := c.deques[victim].Steal(); ok {
			c.affinity.RecordCooperation(workerID, victim)
			c.steals.Add(1)
			reportOutcome(c.cfg.Policy, true)
			return job, true
		}
		reportOutcome(c.cfg.Policy, false)

		if attempt == c.cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(c.cfg.Backoff.Next(attempt)):
		}
	}
	return nil, false
}

// StealBatch behaves like Steal but takes multiple jobs from a single
// chosen victim in one go, sized to clamp(victimDepth/2, MinStealBatch,
// MaxStealBatch), trading a slightly larger disruption to the victim for
// fewer future steal round-trips.
func (c *Coordinator) StealBatch(ctx context.Context, workerID int) ([]jobcore.Job, bool) {
	numWorkers := len(c.deques)
	victim, ok := c.cfg.Policy.SelectVictim(workerID, numWorkers)
	if !ok {
		return nil, false
	}
	depth := c.deques[victim].Len()
	if depth <= 0 {
		return nil, false
	}
	n := clampInt(depth/2, c.cfg.MinStealBatch, c.cfg.MaxStealBatch)

	out := make([]jobcore.Job, 0, n)
	for i := 0; i < n; i++ {
		job, ok := c.deques[victim].Steal()
		if !ok {
			break
		}
		out = append(out, job)
	}
	if len(out) == 0 {
		return nil, false
	}
	c.affinity.RecordCooperation(workerID, victim)
	c.steals.Add(int64(len(out)))
	return out, true
}

// Stats reports cumulative attempt and success counts across every worker.
func (c *Coordinator) Stats() (attempts, steals int64) {
	return c.attempts.Load(), c.steals.Load()
}

func reportOutcome(p Policy, success bool) {
	if ap, ok := p.(*AdaptivePolicy); ok {
		ap.ReportOutcome(success)
	}
}
