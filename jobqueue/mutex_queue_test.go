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

func newTestJob(name string) jobcore.Job {
	return jobcore.NewFuncJob(name, jobcore.NewCancellationToken(), func(ctx context.Context) error { return nil })
}

func TestMutexQueueFIFOSingleProducer(t *testing.T) {
	q := NewMutexQueue()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(newTestJob(string(rune('a'+i)))))
	}
	for i := 0; i < 5; i++ {
		job, err := q.TryDequeue()
		require.NoError(t, err)
		assert.Equal(t, string(rune('a'+i)), job.Name())
	}
	_, err := q.TryDequeue()
	assert.ErrorIs(t, err, jobcore.ErrQueueEmpty)
}

func TestMutexQueueEnqueueNil(t *testing.T) {
	q := NewMutexQueue()
	assert.ErrorIs(t, q.Enqueue(nil), jobcore.ErrInvalidArgument)
}

func TestMutexQueueBlockingDequeueWakesOnEnqueue(t *testing.T) {
	q := NewMutexQueue()
	done := make(chan jobcore.Job, 1)
	go func() {
		job, err := q.Dequeue(context.Background())
		if err == nil {
			done <- job
		}
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(newTestJob("late")))
	select {
	case job := <-done:
		assert.Equal(t, "late", job.Name())
	case <-time.After(time.Second):
		t.Fatal("dequeue never woke up")
	}
}

func TestMutexQueueDequeueRespectsContextCancellation(t *testing.T) {
	q := NewMutexQueue()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue never observed cancellation")
	}
}

func TestMutexQueueStopIsIdempotentAndWakesWaiters(t *testing.T) {
	q := NewMutexQueue()
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = q.Dequeue(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	q.StopWaiting()
	q.StopWaiting()
	wg.Wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, jobcore.ErrQueueEmpty)
	}
}

func TestMutexQueueDrainEmptiesAndResets(t *testing.T) {
	q := NewMutexQueue()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(newTestJob("j")))
	}
	items := q.Drain()
	assert.Len(t, items, 3)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Size())
}

func TestMutexQueueCapabilities(t *testing.T) {
	q := NewMutexQueue()
	caps := q.Capabilities()
	assert.True(t, caps.ExactSize)
	assert.True(t, caps.SupportsBlockingWait)
	assert.False(t, caps.LockFree)
}
