package jobcore

// Capabilities describes what a queue implementation actually guarantees,
// so callers never have to guess from behavior alone. The lock-free queue's
// size() is a hint, not a fact — Capabilities is the authoritative place
// that says so (spec §6, resolving the §9 "size() exactness" open question).
type Capabilities struct {
	ExactSize            bool
	AtomicEmptyCheck     bool
	LockFree             bool
	WaitFree             bool
	SupportsBatch        bool
	SupportsBlockingWait bool
	SupportsStop         bool
}
