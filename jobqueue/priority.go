package jobqueue

import "time"

// Priority is a total order over job importance. Lower values sort first —
// RealTime jobs run before Batch jobs, which run before Background jobs —
// matching the ordering spec.md's seed scenarios exercise.
type Priority int

const (
	RealTime   Priority = iota // highest priority
	Batch                      // default priority
	Background                 // lowest priority
)

func (p Priority) String() string {
	switch p {
	case RealTime:
		return "RealTime"
	case Batch:
		return "Batch"
	case Background:
		return "Background"
	default:
		return "Priority(" + itoa(int(p)) + ")"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// BoostCurve selects how an AgingQueue grows a job's priority boost on each
// aging tick.
type BoostCurve int

const (
	// Linear adds a constant boost each tick.
	Linear BoostCurve = iota
	// Exponential multiplies the current boost by a configured factor,
	// rounding up.
	Exponential
	// Logarithmic sets the boost to floor(log2(wait_ms)), derived from
	// total wait time rather than accumulated per-tick.
	Logarithmic
)

// AgedPriority tracks a job's static priority and its accumulated boost.
// Effective priority is computed on demand via Effective, never stored, so
// it's always consistent with the latest boost.
type AgedPriority struct {
	Base       Priority
	Boost      int32
	EnqueuedAt time.Time
}

// Effective returns the job's current scheduling priority: base priority
// minus its boost, clamped so it never surpasses minPriority (the highest
// priority value the system allows, numerically smallest).
func (a AgedPriority) Effective(minPriority Priority) Priority {
	eff := int(a.Base) - int(a.Boost)
	if Priority(eff) < minPriority {
		return minPriority
	}
	return Priority(eff)
}

// Wait returns how long the job has been tracked, measured from now.
func (a AgedPriority) Wait(now time.Time) time.Duration {
	return now.Sub(a.EnqueuedAt)
}
