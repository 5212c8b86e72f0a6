package jobengine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-foundations/jobengine/diagnostics"
	"github.com/go-foundations/jobengine/jobcore"
	"github.com/go-foundations/jobengine/jobqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPoolEnqueueBeforeStartFails(t *testing.T) {
	p := New("unstarted")
	err := p.Enqueue(jobcore.NewFuncJob("x", nil, func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, err, jobcore.ErrNotStarted)
}

func TestPoolStartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("start-once")
	p.AddWorker(DefaultWorkerPolicy())
	require.NoError(t, p.Start())
	defer p.Stop(true)
	assert.ErrorIs(t, p.Start(), jobcore.ErrAlreadyStarted)
}

func TestPoolStopImmediateDrainsPending(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("drain")
	// No workers: nothing will ever dequeue, so Stop(true) must clear the
	// backlog rather than block waiting for consumption.
	require.NoError(t, p.Start())
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Enqueue(jobcore.NewFuncJob("q", nil, func(ctx context.Context) error { return nil })))
	}
	p.Stop(true)
	assert.True(t, p.activeQueue().Empty())
}

func TestPoolWorkStealingDrainsAnOverloadedWorker(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("steal")
	workers := p.AddWorkers(4, DefaultWorkerPolicy())
	require.NoError(t, p.Start())
	defer p.Stop(true)

	// Pin every job directly onto worker 0's own local deque, bypassing
	// the shared queue, so the only way the other three workers can ever
	// make progress is by stealing.
	const n = 200
	var ran atomic.Int64
	for i := 0; i < n; i++ {
		job := jobcore.NewFuncJob("steal-me", nil, func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		workers[0].localDeque.PushBottom(job)
	}

	assert.Eventually(t, func() bool {
		return ran.Load() == int64(n)
	}, 3*time.Second, 5*time.Millisecond)
}

func TestPoolReconfigureSwapsQueueOnlyWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("reconfigure")
	p.AddWorker(DefaultWorkerPolicy())
	require.NoError(t, p.Start())
	defer p.Stop(true)

	blocking := make(chan struct{})
	require.NoError(t, p.Enqueue(jobcore.NewFuncJob("block", nil, func(ctx context.Context) error {
		<-blocking
		return nil
	})))

	swapped := make(chan struct{})
	go func() {
		p.Reconfigure(jobqueue.NewMutexQueue())
		close(swapped)
	}()

	select {
	case <-swapped:
		t.Fatal("Reconfigure returned while a job was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(blocking)
	select {
	case <-swapped:
	case <-time.After(2 * time.Second):
		t.Fatal("Reconfigure never completed once the worker went idle")
	}
}

func TestPoolDiagnosticsReportsPendingAndActiveJobs(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("diag")
	p.AddWorker(DefaultWorkerPolicy())
	require.NoError(t, p.Start())
	defer p.Stop(true)

	release := make(chan struct{})
	require.NoError(t, p.Enqueue(jobcore.NewFuncJob("hold", nil, func(ctx context.Context) error {
		<-release
		return nil
	})))
	require.NoError(t, p.Enqueue(jobcore.NewFuncJob("wait-in-queue", nil, func(ctx context.Context) error { return nil })))

	assert.Eventually(t, func() bool {
		snap := p.Diagnostics()
		return len(snap.ActiveJobs) == 1 && snap.PendingJobs == 1
	}, time.Second, 5*time.Millisecond)

	close(release)
}

func TestPoolDiagnosticsHealthIsHealthyWhenIdle(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("healthy")
	p.AddWorker(DefaultWorkerPolicy())
	require.NoError(t, p.Start())
	defer p.Stop(true)

	snap := p.Diagnostics()
	assert.Equal(t, diagnostics.Healthy, snap.Health)
}

func TestPoolAddListenerReceivesEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New("listen")
	p.AddWorker(DefaultWorkerPolicy())

	events := make(chan diagnostics.Event, 16)
	p.AddListener(diagnostics.ListenerFunc(func(e diagnostics.Event) { events <- e }))

	require.NoError(t, p.Start())
	defer p.Stop(true)

	require.NoError(t, p.Enqueue(jobcore.NewFuncJob("evented", nil, func(ctx context.Context) error { return nil })))

	var kinds []diagnostics.Kind
	timeout := time.After(2 * time.Second)
	for len(kinds) < 3 {
		select {
		case e := <-events:
			kinds = append(kinds, e.Kind)
		case <-timeout:
			t.Fatalf("only saw %v before timing out", kinds)
		}
	}
	assert.Contains(t, kinds, diagnostics.Enqueued)
	assert.Contains(t, kinds, diagnostics.Completed)
}
