package stealing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedBackoffAlwaysSameDelay(t *testing.T) {
	b := FixedBackoff{Delay: 10 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, b.Next(0))
	assert.Equal(t, 10*time.Millisecond, b.Next(50))
}

func TestLinearBackoffGrowsAndCaps(t *testing.T) {
	b := LinearBackoff{Base: time.Millisecond, Max: 5 * time.Millisecond}
	assert.Equal(t, time.Millisecond, b.Next(0))
	assert.Equal(t, 2*time.Millisecond, b.Next(1))
	assert.Equal(t, 5*time.Millisecond, b.Next(100))
}

func TestExponentialBackoffGrowsAndCaps(t *testing.T) {
	b := ExponentialBackoff{Base: time.Millisecond, Max: 20 * time.Millisecond}
	assert.Equal(t, time.Millisecond, b.Next(0))
	assert.Equal(t, 2*time.Millisecond, b.Next(1))
	assert.Equal(t, 4*time.Millisecond, b.Next(2))
	assert.Equal(t, 20*time.Millisecond, b.Next(100))
}

func TestAdaptiveJitterBackoffNeverExceedsMax(t *testing.T) {
	b := NewAdaptiveJitterBackoff(time.Millisecond, 10*time.Millisecond)
	for attempt := 0; attempt < 20; attempt++ {
		d := b.Next(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 10*time.Millisecond)
	}
}
