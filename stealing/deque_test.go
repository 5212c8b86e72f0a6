package stealing

import (
	"context"
	"sync"
	"testing"

	"github.com/go-foundations/jobengine/jobcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newStealingJob(name string) jobcore.Job {
	return jobcore.NewFuncJob(name, jobcore.NewCancellationToken(), func(ctx context.Context) error { return nil })
}

func TestDequeOwnerLIFO(t *testing.T) {
	d := NewDeque(4)
	d.PushBottom(newStealingJob("a"))
	d.PushBottom(newStealingJob("b"))
	d.PushBottom(newStealingJob("c"))

	job, ok := d.PopBottom()
	require.True(t, ok)
	assert.Equal(t, "c", job.Name())

	job, ok = d.PopBottom()
	require.True(t, ok)
	assert.Equal(t, "b", job.Name())
}

func TestDequeGrowsPastInitialCapacity(t *testing.T) {
	d := NewDeque(2)
	for i := 0; i < 200; i++ {
		d.PushBottom(newStealingJob("j"))
	}
	assert.Equal(t, 200, d.Len())
	count := 0
	for {
		_, ok := d.PopBottom()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 200, count)
}

func TestDequeStealFIFOFromTop(t *testing.T) {
	d := NewDeque(8)
	d.PushBottom(newStealingJob("first"))
	d.PushBottom(newStealingJob("second"))

	job, ok := d.Steal()
	require.True(t, ok)
	assert.Equal(t, "first", job.Name())
}

func TestDequeEmptyPopAndSteal(t *testing.T) {
	d := NewDeque(4)
	_, ok := d.PopBottom()
	assert.False(t, ok)
	_, ok = d.Steal()
	assert.False(t, ok)
}

// TestDequeConcurrentOwnerAndThievesNoDoubleDeliver races one owner doing
// Push/Pop against many thieves doing Steal, and checks every pushed job is
// delivered exactly once.
func TestDequeConcurrentOwnerAndThievesNoDoubleDeliver(t *testing.T) {
	defer goleak.VerifyNone(t)
	d := NewDeque(16)
	const total = 5000

	delivered := make(chan string, total)

	var ownerWG sync.WaitGroup
	ownerWG.Add(1)
	go func() {
		defer ownerWG.Done()
		pushed := 0
		for pushed < total {
			d.PushBottom(newStealingJob("x"))
			pushed++
			if job, ok := d.PopBottom(); ok {
				delivered <- job.Name()
			}
		}
		for {
			job, ok := d.PopBottom()
			if !ok {
				break
			}
			delivered <- job.Name()
		}
	}()

	var thievesWG sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		thievesWG.Add(1)
		go func() {
			defer thievesWG.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if job, ok := d.Steal(); ok {
					delivered <- job.Name()
				}
			}
		}()
	}

	ownerWG.Wait()
	close(stop)
	thievesWG.Wait()
	close(delivered)

	count := 0
	for range delivered {
		count++
	}
	assert.Equal(t, total, count)
}
