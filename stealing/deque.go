// Package stealing implements the work-stealing half of the engine: a
// Chase-Lev deque per worker, NUMA topology detection, victim-selection
// policies, backoff strategies, and the Coordinator that ties them together.
package stealing

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/go-foundations/jobengine/jobcore"
)

const dequeMinCapacity = 32

// Deque is a Chase-Lev work-stealing deque. The owning worker calls
// PushBottom/PopBottom from a single goroutine; any other goroutine may call
// Steal concurrently. PushBottom/PopBottom are NOT goroutine-safe to call
// from two different goroutines — only Steal is thief-safe.
//
// top is written by thieves, bottom by the owner; _ pads them onto separate
// cache lines so a busy thief doesn't bounce the owner's line back and
// forth (the Go-idiomatic substitute for the original's manual alignment).
type Deque struct {
	top atomic.Int64
	_   cpu.CacheLinePad
	bottom atomic.Int64
	_      cpu.CacheLinePad
	buf    atomic.Pointer[ring]
}

type ring struct {
	mask  int64
	slots []atomic.Pointer[jobSlot]
}

type jobSlot struct {
	job jobcore.Job
}

func newRing(capacity int64) *ring {
	return &ring{
		mask:  capacity - 1,
		slots: make([]atomic.Pointer[jobSlot], capacity),
	}
}

func (r *ring) get(i int64) jobcore.Job {
	s := r.slots[i&r.mask].Load()
	if s == nil {
		return nil
	}
	return s.job
}

func (r *ring) put(i int64, job jobcore.Job) {
	r.slots[i&r.mask].Store(&jobSlot{job: job})
}

func (r *ring) grow(bottom, top int64) *ring {
	n := newRing(int64(len(r.slots)) * 2)
	for i := top; i < bottom; i++ {
		n.put(i, r.get(i))
	}
	return n
}

// NewDeque returns an empty deque with the given initial capacity, rounded
// up to the next power of two (minimum dequeMinCapacity).
func NewDeque(initialCapacity int) *Deque {
	cap := int64(dequeMinCapacity)
	for cap < int64(initialCapacity) {
		cap *= 2
	}
	d := &Deque{}
	d.buf.Store(newRing(cap))
	return d
}

// PushBottom adds job to the bottom of the deque — the owner's end. Owner-
// only; never call concurrently with another PushBottom or PopBottom.
func (d *Deque) PushBottom(job jobcore.Job) {
	b := d.bottom.Load()
	t := d.top.Load()
	buf := d.buf.Load()
	if b-t >= int64(len(buf.slots)) {
		buf = buf.grow(b, t)
		d.buf.Store(buf)
	}
	buf.put(b, job)
	d.bottom.Store(b + 1)
}

// PopBottom removes and returns the job at the bottom of the deque — the
// owner's end, the same end PushBottom writes to, which is what gives the
// owner LIFO order and keeps it contention-free against thieves in the
// common case. Owner-only.
func (d *Deque) PopBottom() (jobcore.Job, bool) {
	b := d.bottom.Load() - 1
	buf := d.buf.Load()
	d.bottom.Store(b)
	t := d.top.Load()

	if t > b {
		// deque was already empty
		d.bottom.Store(b + 1)
		return nil, false
	}

	job := buf.get(b)
	if t == b {
		// last element: race a concurrent Steal for it
		if !d.top.CompareAndSwap(t, t+1) {
			job = nil
		}
		d.bottom.Store(b + 1)
		if job == nil {
			return nil, false
		}
		return job, true
	}
	return job, true
}

// Steal removes and returns the job at the top of the deque — the thief's
// end. Safe to call concurrently from any number of goroutines, and
// concurrently with the owner's PushBottom/PopBottom.
func (d *Deque) Steal() (jobcore.Job, bool) {
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return nil, false
	}
	buf := d.buf.Load()
	job := buf.get(t)
	if !d.top.CompareAndSwap(t, t+1) {
		// lost the race to another thief or the owner's PopBottom
		return nil, false
	}
	return job, true
}

// Len returns a snapshot of the deque's length. Only exact when called by
// the owner with no concurrent Steal in flight; otherwise a hint.
func (d *Deque) Len() int {
	b := d.bottom.Load()
	t := d.top.Load()
	if b < t {
		return 0
	}
	return int(b - t)
}

func (d *Deque) Empty() bool {
	return d.Len() <= 0
}
