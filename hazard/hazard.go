// Package hazard implements hazard-pointer based memory reclamation for the
// lock-free structures in jobengine/jobqueue. A node popped from a lock-free
// queue cannot be freed immediately: some other goroutine may still hold a
// raw pointer to it (a "hazard pointer") from an in-flight operation. The
// domain tracks those published pointers and only frees a retired node once
// a scan proves no handle still protects it.
package hazard

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Domain owns the published hazard slots and the deferred-retirement lists
// for every handle acquired from it. One Domain is shared by every
// producer/consumer of a single lock-free structure.
type Domain struct {
	mu          sync.Mutex
	handles     []*Handle
	liveHandles atomic.Int64
	// orphaned holds retired nodes handed off by a closing handle that were
	// still protected by some other handle at close time. They're swept
	// back in on the next scanAndFree from any handle, since the domain
	// itself has no goroutine to scan on their behalf.
	orphaned []retiredNode
}

// NewDomain creates an empty hazard domain. Handles are acquired lazily by
// the goroutines that use the domain, answering spec §4.2's "slots are
// acquired lazily on first use by a thread".
func NewDomain() *Domain {
	return &Domain{}
}

// slotsPerHandle is the number of hazard pointers a single handle can
// publish concurrently. The lock-free MPMC queue's dequeue needs two (head,
// then head.next), so two is the minimum the engine relies on; extra slots
// are headroom for composite operations.
const slotsPerHandle = 4

// Handle is a set of hazard-pointer slots plus a retired-node list,
// registered with a Domain until Close. A handle can be held across many
// operations by a single goroutine, or acquired fresh for just one
// operation and closed immediately after — LockFreeQueue.TryDequeue does
// the latter, since the Queue interface it implements is called from
// whichever goroutine happens to be dequeuing and has no way to bind a
// handle to one caller across calls. Either way, Close draining the
// retired list and unregistering the handle is what stands in for a C++
// thread-local destructor (spec §9 "thread-local node pools with
// destructor-order issues") — skip it and the handle stays counted in
// domain.handles forever.
type Handle struct {
	domain  *Domain
	slots   [slotsPerHandle]atomic.Pointer[byte]
	retired []retiredNode
}

type retiredNode struct {
	ptr  unsafe.Pointer
	free func()
}

// Acquire registers a new handle with the domain. Callers must Close it
// when done (typically via defer) to release its slots and drain its
// retired list.
func (d *Domain) Acquire() *Handle {
	h := &Handle{domain: d}
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	d.liveHandles.Add(1)
	return h
}

// Close unregisters h from the domain and frees every retired node that
// survives a final scan. A node still protected by another live handle at
// close time can't be freed yet — freeing it would be exactly the
// use-after-free hazard pointers exist to prevent — so it's handed off to
// the domain's orphaned list, picked up by whichever handle scans next.
func (h *Handle) Close() {
	h.domain.mu.Lock()
	for i, other := range h.domain.handles {
		if other == h {
			h.domain.handles = append(h.domain.handles[:i], h.domain.handles[i+1:]...)
			break
		}
	}
	h.domain.mu.Unlock()
	h.domain.liveHandles.Add(-1)

	for i := range h.slots {
		h.slots[i].Store(nil)
	}
	h.scanAndFree()
	if len(h.retired) > 0 {
		h.domain.mu.Lock()
		h.domain.orphaned = append(h.domain.orphaned, h.retired...)
		h.domain.mu.Unlock()
		h.retired = nil
	}
}

// Protect publishes ptr into slot (release-store), then re-reads the source
// via load with acquire semantics until the two agree, guarding against the
// node being retired and freed between the initial read and the publish
// (spec §4.2's mandatory ABA guard on weak memory models — Go's
// sync/atomic already provides the release/acquire ordering this requires).
func (h *Handle) Protect(slot int, load func() unsafe.Pointer) unsafe.Pointer {
	for {
		ptr := load()
		h.slots[slot].Store((*byte)(ptr))
		revalidated := load()
		if revalidated == ptr {
			return ptr
		}
	}
}

// ClearSlot releases the hazard pointer published in slot, signalling that
// this handle no longer depends on the node it guarded.
func (h *Handle) ClearSlot(slot int) {
	h.slots[slot].Store(nil)
}

// Retire defers freeing the node behind ptr until no handle's slot
// publishes it. free is called exactly once, on whichever goroutine's scan
// first proves the node unprotected.
func (h *Handle) Retire(ptr unsafe.Pointer, free func()) {
	h.retired = append(h.retired, retiredNode{ptr: ptr, free: free})
	threshold := 2 * int(h.domain.liveHandles.Load())
	if threshold < 2 {
		threshold = 2
	}
	if len(h.retired) >= threshold {
		h.scanAndFree()
	}
}

// scanAndFree walks every live handle's published slots (a full fence
// ensures this handle's own prior stores are visible before the scan,
// per spec §4.2's "sequentially-consistent fence before reading slots"),
// builds the protected-address set, and frees every retired node — h's own
// and any the domain is holding on behalf of handles that already closed —
// that scan proves is no longer published anywhere. Anything still
// protected goes back to the domain's orphaned list rather than h.retired,
// so it keeps getting a chance to be freed even if h closes next.
func (h *Handle) scanAndFree() {
	runtime.Gosched() // yield point standing in for the seq-cst fence boundary

	protected := make(map[unsafe.Pointer]struct{})
	h.domain.mu.Lock()
	handles := make([]*Handle, len(h.domain.handles))
	copy(handles, h.domain.handles)
	orphaned := h.domain.orphaned
	h.domain.orphaned = nil
	h.domain.mu.Unlock()

	for _, other := range handles {
		for i := range other.slots {
			if p := other.slots[i].Load(); p != nil {
				protected[unsafe.Pointer(p)] = struct{}{}
			}
		}
	}

	sweep := func(list []retiredNode) []retiredNode {
		var keep []retiredNode
		for _, r := range list {
			if _, still := protected[r.ptr]; still {
				keep = append(keep, r)
				continue
			}
			r.free()
		}
		return keep
	}

	h.retired = sweep(h.retired)
	if remaining := sweep(orphaned); len(remaining) > 0 {
		h.domain.mu.Lock()
		h.domain.orphaned = append(h.domain.orphaned, remaining...)
		h.domain.mu.Unlock()
	}
}

// LiveHandles reports the current number of acquired, unreleased handles.
// Exposed for tests and for callers tuning retirement thresholds.
func (d *Domain) LiveHandles() int64 {
	return d.liveHandles.Load()
}
