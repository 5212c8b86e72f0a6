package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-foundations/jobengine/jobcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveQueueAccuracyFirstStaysMutex(t *testing.T) {
	q := NewAdaptiveQueue(AccuracyFirst)
	require.NoError(t, q.Enqueue(newTestJob("x")))
	assert.Equal(t, ModeMutex, q.Mode())
	assert.True(t, q.Capabilities().ExactSize)
}

func TestAdaptiveQueuePerformanceFirstStaysLockFree(t *testing.T) {
	q := NewAdaptiveQueue(PerformanceFirst)
	require.NoError(t, q.Enqueue(newTestJob("x")))
	assert.Equal(t, ModeLockFree, q.Mode())
	assert.True(t, q.Capabilities().LockFree)
}

func TestAdaptiveQueueManualSetModeMigratesWithoutLoss(t *testing.T) {
	q := NewAdaptiveQueue(Manual)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(newTestJob("j")))
	}
	q.SetMode(ModeLockFree)
	assert.Equal(t, ModeLockFree, q.Mode())
	assert.Equal(t, 5, q.Size())

	count := 0
	for {
		_, err := q.TryDequeue()
		if err != nil {
			break
		}
		count++
	}
	assert.Equal(t, 5, count)
}

func TestAdaptiveQueueAccuracyGuardForcesMutexUntilReleased(t *testing.T) {
	q := NewAdaptiveQueue(PerformanceFirst)
	guard := q.ForceAccuracy()
	assert.Equal(t, ModeMutex, q.Mode())

	guard2 := q.ForceAccuracy()
	guard.Release()
	// still held by the second guard
	assert.Equal(t, ModeMutex, q.Mode())

	guard2.Release()
	assert.Equal(t, ModeLockFree, q.Mode())
}

func TestAdaptiveQueueAccuracyGuardReleaseIsIdempotent(t *testing.T) {
	q := NewAdaptiveQueue(PerformanceFirst)
	guard := q.ForceAccuracy()
	guard.Release()
	guard.Release()
	assert.Equal(t, ModeLockFree, q.Mode())
}

// TestAdaptiveQueueBalancedSwitchesUnderConcurrency exercises the resolved
// hysteresis policy: a Balanced queue starts in ModeMutex, and 16 goroutines
// enqueueing and dequeueing concurrently should move it to ModeLockFree
// within two seconds.
func TestAdaptiveQueueBalancedSwitchesUnderConcurrency(t *testing.T) {
	q := NewAdaptiveQueue(Balanced)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	const workers = 16
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				_ = q.Enqueue(newTestJob("load"))
				_, _ = q.TryDequeue()
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	sawLockFree := false
	for time.Now().Before(deadline) {
		if q.Mode() == ModeLockFree {
			sawLockFree = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	assert.True(t, sawLockFree, "expected Balanced policy to switch to ModeLockFree under high concurrency")
}

func TestAdaptiveQueueStopWaitingStopsBothBackings(t *testing.T) {
	q := NewAdaptiveQueue(Manual)
	q.StopWaiting()
	assert.ErrorIs(t, q.Enqueue(newTestJob("x")), jobcore.ErrQueueStopped)
}

func TestAdaptiveQueueStatsTracksSwitches(t *testing.T) {
	q := NewAdaptiveQueue(Manual)
	q.SetMode(ModeLockFree)
	q.SetMode(ModeMutex)
	stats := q.Stats()
	assert.Equal(t, int64(2), stats.SwitchCount)
}
