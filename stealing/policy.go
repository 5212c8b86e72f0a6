package stealing

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"
)

// WorkerNodeFunc maps a worker index to the NUMA node it is pinned to.
type WorkerNodeFunc func(workerID int) int

// Policy selects which worker a thief should next attempt to steal from.
// Implementations must never return self, and ok is false only when no
// victim can be chosen at all (numWorkers <= 1).
type Policy interface {
	SelectVictim(self, numWorkers int) (victim int, ok bool)
}

// RandomPolicy picks a uniformly random worker other than self.
type RandomPolicy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPolicy() *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(uint64(time.Now().UnixNano())))}
}

func (p *RandomPolicy) SelectVictim(self, numWorkers int) (int, bool) {
	if numWorkers <= 1 {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.rng.Intn(numWorkers - 1)
	if v >= self {
		v++
	}
	return v, true
}

// RoundRobinPolicy cycles through every other worker in index order.
type RoundRobinPolicy struct {
	cursor atomic.Int64
}

func NewRoundRobinPolicy() *RoundRobinPolicy {
	return &RoundRobinPolicy{}
}

func (p *RoundRobinPolicy) SelectVictim(self, numWorkers int) (int, bool) {
	if numWorkers <= 1 {
		return 0, false
	}
	for i := 0; i < numWorkers; i++ {
		c := int(p.cursor.Add(1)) % numWorkers
		if c != self {
			return c, true
		}
	}
	return 0, false
}

// AdaptivePolicy tracks a success EMA for its two delegate policies —
// Random and RoundRobin — and routes each SelectVictim call to whichever
// has recently paid off more often, mirroring the workload-driven strategy
// switching the teacher's strategies/adaptive_strategy.go performs between
// distribution strategies rather than queue implementations.
type AdaptivePolicy struct {
	random    *RandomPolicy
	roundRobin *RoundRobinPolicy

	mu           sync.Mutex
	randomEMA    float64
	roundRobinEMA float64
	lastPicked   string
}

const adaptivePolicyEMAAlpha = 0.2

func NewAdaptivePolicy() *AdaptivePolicy {
	return &AdaptivePolicy{
		random:        NewRandomPolicy(),
		roundRobin:    NewRoundRobinPolicy(),
		randomEMA:     0.5,
		roundRobinEMA: 0.5,
	}
}

func (p *AdaptivePolicy) SelectVictim(self, numWorkers int) (int, bool) {
	p.mu.Lock()
	useRandom := p.randomEMA >= p.roundRobinEMA
	p.mu.Unlock()

	if useRandom {
		p.mu.Lock()
		p.lastPicked = "random"
		p.mu.Unlock()
		return p.random.SelectVictim(self, numWorkers)
	}
	p.mu.Lock()
	p.lastPicked = "roundrobin"
	p.mu.Unlock()
	return p.roundRobin.SelectVictim(self, numWorkers)
}

// ReportOutcome feeds back whether the most recent SelectVictim's pick
// resulted in a successful steal, updating that delegate's EMA.
func (p *AdaptivePolicy) ReportOutcome(success bool) {
	var outcome float64
	if success {
		outcome = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.lastPicked {
	case "random":
		p.randomEMA = adaptivePolicyEMAAlpha*outcome + (1-adaptivePolicyEMAAlpha)*p.randomEMA
	case "roundrobin":
		p.roundRobinEMA = adaptivePolicyEMAAlpha*outcome + (1-adaptivePolicyEMAAlpha)*p.roundRobinEMA
	}
}

// DefaultNumaPenaltyFactor is NumaAwarePolicy's cross-node selection
// divisor when none is supplied: a 1-in-4 chance of picking uniformly among
// all other workers, of any node, even when same-node candidates exist.
const DefaultNumaPenaltyFactor = 4

// NumaAwarePolicy prefers victims pinned to the same NUMA node as the
// thief, but never forecloses cross-node victims entirely: even with
// same-node candidates available, with probability 1/NumaPenaltyFactor it
// makes a uniform random pick across every other worker (which may still
// land on the same node), and it always does so when the local node has
// no other workers at all.
type NumaAwarePolicy struct {
	topo              Topology
	workerNode        WorkerNodeFunc
	numaPenaltyFactor int
	fallback          *RandomPolicy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewNumaAwarePolicy constructs a NumaAwarePolicy with DefaultNumaPenaltyFactor.
// Use NewNumaAwarePolicyWithPenalty to override it.
func NewNumaAwarePolicy(topo Topology, workerNode WorkerNodeFunc) *NumaAwarePolicy {
	return NewNumaAwarePolicyWithPenalty(topo, workerNode, DefaultNumaPenaltyFactor)
}

// NewNumaAwarePolicyWithPenalty constructs a NumaAwarePolicy that makes
// its pool-wide uniform pick with probability 1/penaltyFactor. A
// penaltyFactor <= 1 means every selection is that pool-wide pick — the
// policy degenerates to pure random selection.
func NewNumaAwarePolicyWithPenalty(topo Topology, workerNode WorkerNodeFunc, penaltyFactor int) *NumaAwarePolicy {
	if penaltyFactor < 1 {
		penaltyFactor = 1
	}
	return &NumaAwarePolicy{
		topo:              topo,
		workerNode:        workerNode,
		numaPenaltyFactor: penaltyFactor,
		fallback:          NewRandomPolicy(),
		rng:               rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (p *NumaAwarePolicy) pickLocal(local []int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return local[p.rng.Intn(len(local))]
}

// crossNode reports whether this selection should be allowed to reach
// across nodes, rolled with probability 1/numaPenaltyFactor.
func (p *NumaAwarePolicy) crossNode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(p.numaPenaltyFactor) == 0
}

func (p *NumaAwarePolicy) SelectVictim(self, numWorkers int) (int, bool) {
	if numWorkers <= 1 {
		return 0, false
	}
	selfNode := p.workerNode(self)
	var local []int
	for w := 0; w < numWorkers; w++ {
		if w != self && p.workerNode(w) == selfNode {
			local = append(local, w)
		}
	}
	if len(local) == 0 {
		return p.fallback.SelectVictim(self, numWorkers)
	}
	if p.crossNode() {
		return p.fallback.SelectVictim(self, numWorkers)
	}
	return p.pickLocal(local), true
}

// LocalityAwarePolicy prefers the worker with the highest recorded
// cooperation count, falling back to random when no cooperation has been
// observed yet.
type LocalityAwarePolicy struct {
	affinity *AffinityTracker
	fallback *RandomPolicy
}

func NewLocalityAwarePolicy(affinity *AffinityTracker) *LocalityAwarePolicy {
	return &LocalityAwarePolicy{affinity: affinity, fallback: NewRandomPolicy()}
}

func (p *LocalityAwarePolicy) SelectVictim(self, numWorkers int) (int, bool) {
	if numWorkers <= 1 {
		return 0, false
	}
	if v, ok := p.affinity.BestPartner(self, nil); ok && p.affinity.Cooperation(self, v) > 0 {
		return v, true
	}
	return p.fallback.SelectVictim(self, numWorkers)
}

// HierarchicalPolicy combines both signals: it restricts the candidate set
// to same-node workers, then within that set prefers the best-affinity
// partner, falling back to random within the set. When the node has no
// other workers it makes a plain random pick over the whole pool, without
// consulting affinity.
type HierarchicalPolicy struct {
	topo       Topology
	workerNode WorkerNodeFunc
	affinity   *AffinityTracker
	fallback   *RandomPolicy

	mu  sync.Mutex
	rng *rand.Rand
}

func NewHierarchicalPolicy(topo Topology, workerNode WorkerNodeFunc, affinity *AffinityTracker) *HierarchicalPolicy {
	return &HierarchicalPolicy{
		topo:       topo,
		workerNode: workerNode,
		affinity:   affinity,
		fallback:   NewRandomPolicy(),
		rng:        rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (p *HierarchicalPolicy) pickLocal(local []int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return local[p.rng.Intn(len(local))]
}

func (p *HierarchicalPolicy) SelectVictim(self, numWorkers int) (int, bool) {
	if numWorkers <= 1 {
		return 0, false
	}
	selfNode := p.workerNode(self)
	inNode := func(w int) bool { return p.workerNode(w) == selfNode }

	if v, ok := p.affinity.BestPartner(self, func(w int) bool { return !inNode(w) }); ok && p.affinity.Cooperation(self, v) > 0 {
		return v, true
	}

	var local []int
	for w := 0; w < numWorkers; w++ {
		if w != self && inNode(w) {
			local = append(local, w)
		}
	}
	if len(local) > 0 {
		return p.pickLocal(local), true
	}
	return p.fallback.SelectVictim(self, numWorkers)
}
