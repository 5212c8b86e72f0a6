package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingSnapshotOrderBeforeWrap(t *testing.T) {
	r := NewRing(4)
	r.Push(Event{JobID: 1})
	r.Push(Event{JobID: 2})
	snap := r.Snapshot()
	assert.Equal(t, []uint64{1, 2}, []uint64{snap[0].JobID, snap[1].JobID})
}

func TestRingOverwritesOldestOnWrap(t *testing.T) {
	r := NewRing(3)
	for i := uint64(1); i <= 5; i++ {
		r.Push(Event{JobID: i})
	}
	snap := r.Snapshot()
	assert.Len(t, snap, 3)
	assert.Equal(t, []uint64{3, 4, 5}, []uint64{snap[0].JobID, snap[1].JobID, snap[2].JobID})
}

func TestRingLenTracksCount(t *testing.T) {
	r := NewRing(2)
	assert.Equal(t, 0, r.Len())
	r.Push(Event{})
	assert.Equal(t, 1, r.Len())
	r.Push(Event{})
	r.Push(Event{})
	assert.Equal(t, 2, r.Len())
}
