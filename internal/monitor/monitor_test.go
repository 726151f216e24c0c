package monitor_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/powermon/internal/led"
	"codeberg.org/mutker/powermon/internal/monitor"
	"codeberg.org/mutker/powermon/internal/notify"
	"codeberg.org/mutker/powermon/internal/powerlog"
	"codeberg.org/mutker/powermon/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blobName = "powerlog.json"

// fakeClock is a fully scripted TimeSource: tests set now directly.
type fakeClock struct {
	now       time.Time
	valid     bool
	lastKnown time.Time
	resyncs   int
}

func (f *fakeClock) Sync(_ context.Context, lastKnown time.Time) { f.lastKnown = lastKnown }
func (f *fakeClock) Now() time.Time                              { return f.now }
func (f *fakeClock) Valid() bool                                 { return f.valid }
func (f *fakeClock) Resync(_ context.Context) bool {
	f.resyncs++
	return false
}

// recordingCollector captures archived events.
type recordingCollector struct {
	events []powerlog.Event
	closed bool
}

func (r *recordingCollector) Record(_ context.Context, event powerlog.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingCollector) Close() error {
	r.closed = true
	return nil
}

type harness struct {
	controller *monitor.Controller
	clock      *fakeClock
	blobs      *store.MemStore
	blinker    *led.FakeBlinker
	publisher  *notify.FakePublisher
	collector  *recordingCollector
}

func newHarness(cfg monitor.Config) *harness {
	h := &harness{
		clock:     &fakeClock{valid: true},
		blobs:     store.NewMemStore(),
		blinker:   &led.FakeBlinker{},
		publisher: &notify.FakePublisher{},
		collector: &recordingCollector{},
	}
	h.controller = monitor.New(cfg, h.clock, h.blobs, h.blinker, h.publisher, h.collector)

	return h
}

func defaultConfig() monitor.Config {
	return monitor.Config{
		StateBlob:   blobName,
		HistoryDays: 14,
		EventLimit:  20,
		Autosave:    300 * time.Second,
		Retention:   monitor.RetentionRolling,
	}
}

// seed persists a state blob the way a previous run would have.
func (h *harness) seed(t *testing.T, build func(*powerlog.State)) {
	t.Helper()

	state := powerlog.NewState(14, 20)
	build(state)
	data, err := state.Encode()
	require.NoError(t, err)
	require.NoError(t, h.blobs.Write(blobName, data))
}

func TestBootFirstEver(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Unix(5000, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(5000), snap.LastOn)
	assert.Zero(t, snap.LastOff)
	assert.Zero(t, snap.LastDowntime)

	require.Len(t, snap.Days, 14, "day ring is always at full capacity")
	for i, b := range snap.Days {
		assert.Zero(t, b.Uptime, "day %d", i)
		assert.Zero(t, b.Outages, "day %d", i)
	}

	require.Len(t, snap.Events, 1, "no outage to close on a first boot")
	assert.Equal(t, powerlog.KindOn, snap.Events[0].Kind)
	assert.Equal(t, int64(5000), snap.Events[0].At)

	assert.Equal(t, 1, h.blinker.Blinks)
	require.Len(t, h.publisher.Restores, 1)
	assert.True(t, h.publisher.Restores[0].FirstBoot)
	assert.Zero(t, h.publisher.Restores[0].Outage)
	assert.Positive(t, h.blobs.Writes)
}

func TestBootAfterCrashEstimatesOutage(t *testing.T) {
	h := newHarness(defaultConfig())
	// Prior run: session opened at 1000, last persisted uptime 300, no
	// clean power-off mark. Power returns at 1500.
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = 1000
		s.Days.Today().Uptime = 300
	})
	h.clock.now = time.Unix(1500, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(200), snap.LastDowntime, "gap = 1500 - (1000 + 300)")
	assert.Equal(t, int64(1300), snap.LastOff)
	assert.Equal(t, int64(1500), snap.LastOn)

	today := snap.Days[0]
	assert.Equal(t, int64(200), today.Downtime)
	assert.Equal(t, uint32(1), today.Outages)
	assert.Equal(t, int64(200), today.Longest)

	require.Len(t, snap.Events, 2)
	assert.Equal(t, powerlog.KindOn, snap.Events[0].Kind, "newest first")
	assert.Equal(t, powerlog.KindOff, snap.Events[1].Kind)
	assert.Equal(t, int64(200), snap.Events[1].Duration)

	require.Len(t, h.publisher.Restores, 1)
	assert.False(t, h.publisher.Restores[0].FirstBoot)
	assert.Equal(t, 200*time.Second, h.publisher.Restores[0].Outage)

	require.Len(t, h.collector.events, 2)
	assert.Equal(t, powerlog.KindOff, h.collector.events[0].Kind)
	assert.Equal(t, powerlog.KindOn, h.collector.events[1].Kind)
}

func TestBootAfterCleanShutdown(t *testing.T) {
	h := newHarness(defaultConfig())
	// A clean stop marked LastOff; the outage runs from that mark.
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = 1000
		s.LastOff = 1400
		s.Days.Today().Uptime = 400
	})
	h.clock.now = time.Unix(1500, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(100), snap.LastDowntime)
	assert.Equal(t, int64(1400), snap.LastOff)
}

func TestBootClampsNegativeGap(t *testing.T) {
	h := newHarness(defaultConfig())
	// Recovered clock runs behind the persisted state; durations must
	// never go negative.
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = 2000
		s.Days.Today().Uptime = 500
	})
	h.clock.now = time.Unix(2100, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Zero(t, snap.LastDowntime)
	assert.Zero(t, snap.Days[0].Downtime)
	assert.Equal(t, uint32(1), snap.Days[0].Outages, "the reboot still counts as an outage")
}

func TestBootWithCorruptBlobStartsFresh(t *testing.T) {
	h := newHarness(defaultConfig())
	require.NoError(t, h.blobs.Write(blobName, []byte("{garbage")))
	h.clock.now = time.Unix(5000, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(5000), snap.LastOn)
	assert.Len(t, snap.Events, 1, "corrupt state is treated exactly like absent state")
}

func TestBootPassesLastKnownToClock(t *testing.T) {
	h := newHarness(defaultConfig())
	h.seed(t, func(s *powerlog.State) { s.LastOn = 1000 })
	h.clock.now = time.Unix(1500, 0).UTC()

	h.controller.Boot(context.Background())

	assert.Equal(t, time.Unix(1000, 0), h.clock.lastKnown)
}

func TestTickRecomputesUptime(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Unix(5000, 0).UTC()
	h.controller.Boot(context.Background())

	// Several ticks were missed; the next one still lands on the right
	// total because uptime derives from the session start.
	h.clock.now = time.Unix(5123, 0).UTC()
	h.controller.Tick(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(123), snap.Days[0].Uptime)
}

func TestTickSameDayDoesNotRotate(t *testing.T) {
	h := newHarness(defaultConfig())
	base := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	h.clock.now = base
	h.controller.Boot(context.Background())

	for i := 1; i <= 5; i++ {
		h.clock.now = base.Add(time.Duration(i) * time.Minute)
		h.controller.Tick(context.Background())
	}

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(300), snap.Days[0].Uptime)
	assert.Zero(t, snap.Days[1].Uptime, "no rotation within the same calendar day")
}

func TestTickRotatesAcrossMidnight(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Date(2025, time.March, 1, 23, 0, 0, 0, time.UTC)
	h.controller.Boot(context.Background())

	h.clock.now = time.Date(2025, time.March, 2, 0, 0, 10, 0, time.UTC)
	h.controller.Tick(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Zero(t, snap.Days[0].Uptime, "new day starts a fresh bucket")
	assert.Equal(t, int64(3610), snap.Days[1].Uptime, "yesterday froze with the pre-rotation total")

	// Crossing back is impossible; the next tick stays in today.
	h.clock.now = time.Date(2025, time.March, 2, 0, 10, 0, 0, time.UTC)
	h.controller.Tick(context.Background())

	snap, _ = h.controller.Snapshot()
	assert.Equal(t, int64(3610), snap.Days[1].Uptime)
}

func TestTickAutosaves(t *testing.T) {
	cfg := defaultConfig()
	cfg.Autosave = 60 * time.Second
	h := newHarness(cfg)
	base := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	h.clock.now = base
	h.controller.Boot(context.Background())

	writes := h.blobs.Writes

	h.clock.now = base.Add(10 * time.Second)
	h.controller.Tick(context.Background())
	assert.Equal(t, writes, h.blobs.Writes, "no save before the autosave interval")

	h.clock.now = base.Add(70 * time.Second)
	h.controller.Tick(context.Background())
	assert.Equal(t, writes+1, h.blobs.Writes)
}

func TestTickResyncsWhileClockInvalid(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.valid = false
	base := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	h.clock.now = base
	h.controller.Boot(context.Background())

	h.clock.now = base.Add(time.Minute)
	h.controller.Tick(context.Background())
	assert.Zero(t, h.clock.resyncs, "too soon to retry")

	h.clock.now = base.Add(6 * time.Minute)
	h.controller.Tick(context.Background())
	assert.Equal(t, 1, h.clock.resyncs)
}

func TestQueriesConcurrentWithTicks(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Unix(5000, 0).UTC()
	h.controller.Boot(context.Background())

	// The read path runs from request handlers while the tick loop
	// mutates; the race detector verifies the lock discipline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			h.controller.Tick(context.Background())
		}
	}()

	for i := 0; i < 200; i++ {
		snap, _ := h.controller.Snapshot()
		assert.Equal(t, int64(5000), snap.LastOn)
		h.controller.ClockValid()
	}
	<-done
}

func TestWriteFailureKeepsStateInMemory(t *testing.T) {
	h := newHarness(defaultConfig())
	h.blobs.FailWrites = true
	h.clock.now = time.Unix(5000, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(5000), snap.LastOn, "in-memory state stays authoritative")

	// Storage comes back: the next due save lands.
	h.blobs.FailWrites = false
	h.clock.now = time.Unix(5400, 0).UTC()
	h.controller.Tick(context.Background())

	assert.Equal(t, 1, h.blobs.Writes)
	data, err := h.blobs.Read(blobName)
	require.NoError(t, err)

	got, err := powerlog.Decode(data, 14, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.LastOn)
}

func TestReset(t *testing.T) {
	h := newHarness(defaultConfig())
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = 1000
		s.Days.Today().Uptime = 300
	})
	h.clock.now = time.Unix(1500, 0).UTC()
	h.controller.Boot(context.Background())

	h.clock.now = time.Unix(1600, 0).UTC()
	require.NoError(t, h.controller.Reset())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(1600), snap.LastOn, "session reopens at the reset instant")
	assert.Zero(t, snap.LastOff)
	assert.Zero(t, snap.LastDowntime)
	assert.Equal(t, int64(1600), snap.LastReset)
	assert.Empty(t, snap.Events)
	for _, b := range snap.Days {
		assert.Zero(t, b.Uptime)
		assert.Zero(t, b.Outages)
	}
}

func TestResetSurfacesWriteFailure(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Unix(5000, 0).UTC()
	h.controller.Boot(context.Background())

	h.blobs.FailWrites = true
	err := h.controller.Reset()

	require.Error(t, err)
	snap, _ := h.controller.Snapshot()
	assert.Empty(t, snap.Events, "memory cleared even when the flush failed")
}

func TestShutdownMarksPowerOff(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Unix(5000, 0).UTC()
	h.controller.Boot(context.Background())

	h.clock.now = time.Unix(5600, 0).UTC()
	h.controller.Shutdown()

	assert.True(t, h.collector.closed)

	data, err := h.blobs.Read(blobName)
	require.NoError(t, err)
	got, err := powerlog.Decode(data, 14, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5600), got.LastOff, "next boot measures downtime from this mark")
}

func TestMonthlyRetentionWipesOnNewMonth(t *testing.T) {
	cfg := defaultConfig()
	cfg.Retention = monitor.RetentionMonthly
	h := newHarness(cfg)

	jan := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = jan.Unix()
		s.LastReset = jan.Unix()
		s.Days.Today().Uptime = 3600
	})

	feb := time.Date(2025, time.February, 2, 8, 0, 0, 0, time.UTC)
	h.clock.now = feb
	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, feb.Unix(), snap.LastOn)
	assert.Equal(t, feb.Unix(), snap.LastReset)
	assert.Zero(t, snap.LastDowntime, "wiped history leaves nothing to close")
	require.Len(t, snap.Events, 1)
	assert.Equal(t, powerlog.KindOn, snap.Events[0].Kind)
	for _, b := range snap.Days {
		assert.Zero(t, b.Uptime)
	}
}

func TestMonthlyRetentionKeepsSameMonth(t *testing.T) {
	cfg := defaultConfig()
	cfg.Retention = monitor.RetentionMonthly
	h := newHarness(cfg)

	jan15 := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = jan15.Unix()
		s.LastReset = jan15.Unix()
		s.Days.Today().Uptime = 3600
	})

	jan20 := time.Date(2025, time.January, 20, 12, 0, 0, 0, time.UTC)
	h.clock.now = jan20
	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, jan15.Unix(), snap.LastReset)
	assert.Equal(t, uint32(1), snap.Days[0].Outages, "history survives within the month")
}

func TestLongestOutageIsMonotonic(t *testing.T) {
	h := newHarness(defaultConfig())
	h.seed(t, func(s *powerlog.State) {
		s.LastOn = 1000
		s.Days.Today().Uptime = 100
		s.Days.Today().Longest = 900
	})
	h.clock.now = time.Unix(1300, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(200), snap.LastDowntime)
	assert.Equal(t, int64(900), snap.Days[0].Longest, "a shorter outage never lowers the maximum")
}

func TestRawLogPrefersPersistedBlob(t *testing.T) {
	h := newHarness(defaultConfig())
	h.clock.now = time.Unix(5000, 0).UTC()
	h.controller.Boot(context.Background())

	data, err := h.controller.RawLog()
	require.NoError(t, err)

	got, decodeErr := powerlog.Decode(data, 14, 20)
	require.NoError(t, decodeErr)
	assert.Equal(t, int64(5000), got.LastOn)
}

func TestRawLogFallsBackToLiveState(t *testing.T) {
	h := newHarness(defaultConfig())
	h.blobs.FailWrites = true
	h.clock.now = time.Unix(5000, 0).UTC()
	h.controller.Boot(context.Background())
	h.blobs.FailReads = true

	data, err := h.controller.RawLog()
	require.NoError(t, err)

	got, decodeErr := powerlog.Decode(data, 14, 20)
	require.NoError(t, decodeErr)
	assert.Equal(t, int64(5000), got.LastOn)
}

func TestNilPublisherIsTolerated(t *testing.T) {
	h := newHarness(defaultConfig())
	h.controller = monitor.New(defaultConfig(), h.clock, h.blobs, h.blinker, nil, h.collector)
	h.clock.now = time.Unix(5000, 0).UTC()

	h.controller.Boot(context.Background())

	snap, _ := h.controller.Snapshot()
	assert.Equal(t, int64(5000), snap.LastOn)
}
