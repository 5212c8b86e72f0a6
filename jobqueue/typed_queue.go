package jobqueue

import (
	"sort"
	"sync"

	"github.com/go-foundations/jobengine/jobcore"
)

// TypedQueue is a bank of sub-queues keyed by Priority. Dequeue scans
// sub-queues in ascending priority order and returns the first job whose
// priority is in the caller's accepted set, matching spec §4.7. Each
// sub-queue is itself a MutexQueue, so ties within one priority are FIFO.
type TypedQueue struct {
	mu    sync.RWMutex
	subs  map[Priority]*MutexQueue
	order []Priority
}

// NewTypedQueue returns an empty typed queue. Sub-queues are created
// lazily on first use of a given priority.
func NewTypedQueue() *TypedQueue {
	return &TypedQueue{subs: make(map[Priority]*MutexQueue)}
}

func (q *TypedQueue) subQueue(p Priority, create bool) *MutexQueue {
	q.mu.RLock()
	sub, ok := q.subs[p]
	q.mu.RUnlock()
	if ok || !create {
		return sub
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if sub, ok = q.subs[p]; ok {
		return sub
	}
	sub = NewMutexQueue()
	q.subs[p] = sub
	q.order = append(q.order, p)
	sort.Slice(q.order, func(i, j int) bool { return q.order[i] < q.order[j] })
	return sub
}

// Enqueue adds job to the sub-queue for priority.
func (q *TypedQueue) Enqueue(priority Priority, job jobcore.Job) error {
	return q.subQueue(priority, true).Enqueue(job)
}

// Dequeue returns the first job found scanning ascending priority order,
// restricted to the priorities in accepted (nil or empty means "accept
// everything"). The returned Priority is the bucket the job came from.
func (q *TypedQueue) Dequeue(accepted []Priority) (jobcore.Job, Priority, error) {
	var accept map[Priority]struct{}
	if len(accepted) > 0 {
		accept = make(map[Priority]struct{}, len(accepted))
		for _, p := range accepted {
			accept[p] = struct{}{}
		}
	}

	q.mu.RLock()
	order := make([]Priority, len(q.order))
	copy(order, q.order)
	q.mu.RUnlock()

	for _, p := range order {
		if accept != nil {
			if _, ok := accept[p]; !ok {
				continue
			}
		}
		sub := q.subQueue(p, false)
		if sub == nil {
			continue
		}
		if job, err := sub.TryDequeue(); err == nil {
			return job, p, nil
		}
	}
	return nil, 0, jobcore.ErrQueueEmpty
}

// DequeueBatch pops up to n jobs, preserving the same ascending-priority
// ordering Dequeue would produce one call at a time.
func (q *TypedQueue) DequeueBatch(accepted []Priority, n int) []jobcore.Job {
	out := make([]jobcore.Job, 0, n)
	for i := 0; i < n; i++ {
		job, _, err := q.Dequeue(accepted)
		if err != nil {
			break
		}
		out = append(out, job)
	}
	return out
}

// Size returns the total number of jobs queued across every priority.
func (q *TypedQueue) Size() int {
	q.mu.RLock()
	subs := make([]*MutexQueue, 0, len(q.subs))
	for _, s := range q.subs {
		subs = append(subs, s)
	}
	q.mu.RUnlock()

	total := 0
	for _, s := range subs {
		total += s.Size()
	}
	return total
}

func (q *TypedQueue) Empty() bool {
	return q.Size() == 0
}

// StopWaiting stops every sub-queue, matching MutexQueue's stop semantics.
func (q *TypedQueue) StopWaiting() {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, s := range q.subs {
		s.StopWaiting()
	}
}
