package stealing

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// BackoffStrategy computes how long a thief should wait before its next
// steal attempt, given how many attempts it has already made against the
// current target.
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// FixedBackoff always waits the same delay.
type FixedBackoff struct {
	Delay time.Duration
}

func (b FixedBackoff) Next(int) time.Duration { return b.Delay }

// LinearBackoff grows delay linearly with attempt count, capped at Max.
type LinearBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b LinearBackoff) Next(attempt int) time.Duration {
	d := b.Base * time.Duration(attempt+1)
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

// ExponentialBackoff doubles delay each attempt, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt > 62 {
		return b.Max
	}
	d := b.Base << uint(attempt)
	if d <= 0 || d > b.Max {
		return b.Max
	}
	return d
}

// AdaptiveJitterBackoff exponentially grows a ceiling and then waits a
// random duration in [0, ceiling] (full jitter), using
// golang.org/x/exp/rand rather than a hand-rolled PRNG.
type AdaptiveJitterBackoff struct {
	Base time.Duration
	Max  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAdaptiveJitterBackoff seeds its own PRNG so callers don't need to
// manage shared rand state across workers.
func NewAdaptiveJitterBackoff(base, max time.Duration) *AdaptiveJitterBackoff {
	return &AdaptiveJitterBackoff{
		Base: base,
		Max:  max,
		rng:  rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (b *AdaptiveJitterBackoff) Next(attempt int) time.Duration {
	ceiling := b.Base
	if attempt <= 62 {
		if scaled := b.Base << uint(attempt); scaled > 0 && scaled <= b.Max {
			ceiling = scaled
		} else {
			ceiling = b.Max
		}
	} else {
		ceiling = b.Max
	}
	b.mu.Lock()
	jitter := time.Duration(b.rng.Int63n(int64(ceiling) + 1))
	b.mu.Unlock()
	return jitter
}
