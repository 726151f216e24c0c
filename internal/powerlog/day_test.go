package powerlog_test

import (
	"testing"

	"codeberg.org/mutker/powermon/internal/powerlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRingTodayIsMutable(t *testing.T) {
	ring := powerlog.NewDayRing(3)

	today := ring.Today()
	today.Uptime = 3600
	today.Outages = 2

	snap := ring.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(3600), snap[0].Uptime)
	assert.Equal(t, uint32(2), snap[0].Outages)
	assert.Zero(t, snap[1].Uptime)
	assert.Zero(t, snap[2].Uptime)
}

func TestDayRingRotate(t *testing.T) {
	ring := powerlog.NewDayRing(3)

	ring.Today().Uptime = 100
	ring.Rotate()
	ring.Today().Uptime = 200
	ring.Rotate()
	ring.Today().Uptime = 300

	snap := ring.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(300), snap[0].Uptime, "index 0 is today")
	assert.Equal(t, int64(200), snap[1].Uptime)
	assert.Equal(t, int64(100), snap[2].Uptime)
}

func TestDayRingRotateEvictsOldest(t *testing.T) {
	ring := powerlog.NewDayRing(2)

	ring.Today().Uptime = 100
	ring.Rotate()
	ring.Today().Uptime = 200
	ring.Rotate()

	snap := ring.Snapshot()
	require.Len(t, snap, 2)
	assert.Zero(t, snap[0].Uptime, "a rotation always starts a fresh bucket")
	assert.Equal(t, int64(200), snap[1].Uptime, "the 100-uptime bucket fell off")
}

func TestDayRingRotatedBucketsAreFrozen(t *testing.T) {
	ring := powerlog.NewDayRing(3)

	ring.Today().Downtime = 42
	ring.Rotate()
	ring.Today().Downtime = 7

	snap := ring.Snapshot()
	assert.Equal(t, int64(7), snap[0].Downtime)
	assert.Equal(t, int64(42), snap[1].Downtime, "yesterday keeps its totals after rotation")
}

func TestDayRingClear(t *testing.T) {
	ring := powerlog.NewDayRing(3)
	ring.Today().Uptime = 100
	ring.Rotate()
	ring.Today().Uptime = 200

	ring.Clear()

	for i, b := range ring.Snapshot() {
		assert.Zero(t, b.Uptime, "bucket %d not zeroed", i)
	}
	assert.Equal(t, 3, ring.Len())
}
