package observe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotRing_PushAndRecent(t *testing.T) {
	r := NewSnapshotRing(3)
	for i := 0; i < 3; i++ {
		r.Push(Snapshot{CPUPercent: float64(i)})
	}
	assert.Equal(t, 3, r.Len())
	recent := r.Recent(3)
	assert.Equal(t, []float64{0, 1, 2}, []float64{recent[0].CPUPercent, recent[1].CPUPercent, recent[2].CPUPercent})
}

func TestSnapshotRing_OverwritesOldest(t *testing.T) {
	r := NewSnapshotRing(2)
	r.Push(Snapshot{CPUPercent: 1})
	r.Push(Snapshot{CPUPercent: 2})
	r.Push(Snapshot{CPUPercent: 3})

	assert.Equal(t, 2, r.Len())
	recent := r.Recent(2)
	assert.Equal(t, float64(2), recent[0].CPUPercent)
	assert.Equal(t, float64(3), recent[1].CPUPercent)
}

func TestSnapshotRing_Latest(t *testing.T) {
	r := NewSnapshotRing(4)
	_, ok := r.Latest()
	assert.False(t, ok)

	now := time.Now()
	r.Push(Snapshot{Time: now, CPUPercent: 5})
	latest, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, float64(5), latest.CPUPercent)
}

func TestSnapshotRing_ZeroCapacityClampsToOne(t *testing.T) {
	r := NewSnapshotRing(0)
	assert.Equal(t, 1, r.Cap())
}

func TestSnapshotRing_RecentCapsAtAvailable(t *testing.T) {
	r := NewSnapshotRing(5)
	r.Push(Snapshot{CPUPercent: 1})
	assert.Len(t, r.Recent(10), 1)
}
