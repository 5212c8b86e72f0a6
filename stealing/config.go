package stealing

import "time"

// Config bundles the tunables an enhanced work-stealing Coordinator needs:
// batch sizing bounds, the victim-selection policy, and the backoff used
// between failed attempts. Grounded on the original's
// enhanced_work_stealing_config.h / enhanced_steal_policy.h, re-expressed
// as a plain struct plus a Policy/BackoffStrategy interface pair instead of
// a polymorphic C++ config object.
type Config struct {
	Policy        Policy
	Backoff       BackoffStrategy
	MinStealBatch int
	MaxStealBatch int
	MaxAttempts   int
}

// DefaultConfig returns a Coordinator config using RandomPolicy and
// ExponentialBackoff, with conservative batch bounds.
func DefaultConfig() Config {
	return Config{
		Policy:        NewRandomPolicy(),
		Backoff:       ExponentialBackoff{Base: 50 * time.Microsecond, Max: 5 * time.Millisecond},
		MinStealBatch: 1,
		MaxStealBatch: 32,
		MaxAttempts:   4,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
