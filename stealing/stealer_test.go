package stealing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorStealFindsJobOnVictim(t *testing.T) {
	deques := []*Deque{NewDeque(8), NewDeque(8)}
	deques[1].PushBottom(newStealingJob("victim-job"))

	cfg := DefaultConfig()
	cfg.Policy = NewRoundRobinPolicy()
	c := NewCoordinator(Topology{}, deques, func(int) int { return 0 }, cfg)

	job, ok := c.Steal(context.Background(), 0)
	require.True(t, ok)
	assert.Equal(t, "victim-job", job.Name())

	attempts, steals := c.Stats()
	assert.GreaterOrEqual(t, attempts, int64(1))
	assert.Equal(t, int64(1), steals)
}

func TestCoordinatorStealReturnsFalseWhenEveryoneEmpty(t *testing.T) {
	deques := []*Deque{NewDeque(4), NewDeque(4)}
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.Backoff = FixedBackoff{Delay: time.Millisecond}
	c := NewCoordinator(Topology{}, deques, func(int) int { return 0 }, cfg)

	_, ok := c.Steal(context.Background(), 0)
	assert.False(t, ok)
}

func TestCoordinatorStealSingleWorkerNoVictim(t *testing.T) {
	deques := []*Deque{NewDeque(4)}
	c := NewCoordinator(Topology{}, deques, func(int) int { return 0 }, DefaultConfig())
	_, ok := c.Steal(context.Background(), 0)
	assert.False(t, ok)
}

func TestCoordinatorStealBatchClampsSize(t *testing.T) {
	deques := []*Deque{NewDeque(8), NewDeque(64)}
	for i := 0; i < 50; i++ {
		deques[1].PushBottom(newStealingJob("j"))
	}
	cfg := DefaultConfig()
	cfg.Policy = NewRoundRobinPolicy()
	cfg.MaxStealBatch = 10
	c := NewCoordinator(Topology{}, deques, func(int) int { return 0 }, cfg)

	batch, ok := c.StealBatch(context.Background(), 0)
	require.True(t, ok)
	assert.LessOrEqual(t, len(batch), 10)
	assert.Greater(t, len(batch), 0)
}

func TestCoordinatorStealRespectsContextCancellation(t *testing.T) {
	deques := []*Deque{NewDeque(4), NewDeque(4)}
	cfg := DefaultConfig()
	cfg.MaxAttempts = 0 // unlimited, relies on ctx to stop
	cfg.Backoff = FixedBackoff{Delay: 5 * time.Millisecond}
	c := NewCoordinator(Topology{}, deques, func(int) int { return 0 }, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := c.Steal(ctx, 0)
	assert.False(t, ok)
}

func TestCoordinatorRecordsAffinityOnSuccessfulSteal(t *testing.T) {
	deques := []*Deque{NewDeque(8), NewDeque(8)}
	deques[1].PushBottom(newStealingJob("x"))
	cfg := DefaultConfig()
	cfg.Policy = NewRoundRobinPolicy()
	c := NewCoordinator(Topology{}, deques, func(int) int { return 0 }, cfg)

	_, ok := c.Steal(context.Background(), 0)
	require.True(t, ok)
	assert.Equal(t, uint64(1), c.Affinity().Cooperation(0, 1))
}
