// Package monitor is the lifecycle controller: it owns the persisted
// state, reconstructs the prior power-off at boot, records transitions,
// and drives autosave and day rotation from the runtime tick. All
// mutation is serialized behind the controller's lock; queries read
// value snapshots.
package monitor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/powermon/internal/archive"
	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/led"
	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/notify"
	"codeberg.org/mutker/powermon/internal/powerlog"
	"codeberg.org/mutker/powermon/internal/store"
)

// TimeSource is the reconciled clock capability injected into the
// controller. Tests supply deterministic fakes.
type TimeSource interface {
	// Sync establishes the absolute baseline at boot, falling back to
	// lastKnown when no feed reading is available. Never fails.
	Sync(ctx context.Context, lastKnown time.Time)

	// Now returns the current best-effort absolute time.
	Now() time.Time

	// Valid reports whether the baseline came from a real reading.
	Valid() bool

	// Resync opportunistically re-anchors the baseline. Returns
	// whether it moved.
	Resync(ctx context.Context) bool
}

// Retention selects the history retention policy. Exactly one applies
// per deployment.
type Retention string

const (
	// RetentionRolling keeps the capacity-bounded ring of recent days
	// and events, silently evicting the oldest.
	RetentionRolling Retention = "rolling"
	// RetentionMonthly wipes the whole log when the calendar month of
	// the last reset marker differs from the current one.
	RetentionMonthly Retention = "monthly"
)

const resyncEvery = 5 * time.Minute

type Config struct {
	StateBlob   string
	HistoryDays int
	EventLimit  int
	Autosave    time.Duration
	Retention   Retention
}

// Controller orchestrates boot recovery, runtime ticks, and resets.
type Controller struct {
	mu sync.Mutex

	cfg       Config
	clock     TimeSource
	blobs     store.Store
	blinker   led.Blinker
	publisher notify.Publisher
	collector archive.Collector

	state      *powerlog.State
	lastDay    int
	lastSave   time.Time
	lastResync time.Time
}

// New wires the controller. publisher may be nil when MQTT is disabled;
// collector is expected to be the archive no-op when disabled.
func New(cfg Config, clock TimeSource, blobs store.Store, blinker led.Blinker,
	publisher notify.Publisher, collector archive.Collector,
) *Controller {
	return &Controller{
		cfg:       cfg,
		clock:     clock,
		blobs:     blobs,
		blinker:   blinker,
		publisher: publisher,
		collector: collector,
	}
}

// Boot runs the recovery sequence: load persisted state, recover
// absolute time, apply the monthly retention policy if configured,
// close the previous session, and open a new one. Storage and time
// failures degrade silently; Boot itself never fails.
func (c *Controller) Boot(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.load()

	c.clock.Sync(ctx, time.Unix(c.state.LastOn, 0))
	now := c.clock.Now()
	c.lastDay = now.Day()
	c.lastResync = now

	if c.cfg.Retention == RetentionMonthly {
		c.applyMonthlyRetention(now)
	}

	firstBoot := c.state.LastOn == 0
	gap := c.closePreviousSession(now)
	c.openSession(now, gap, firstBoot)
}

func (c *Controller) load() *powerlog.State {
	data, err := c.blobs.Read(c.cfg.StateBlob)
	if err != nil {
		if store.IsNotFound(err) {
			logger.Info().Msg("No persisted state, starting fresh")
		} else {
			logger.Warn().Err(err).Msg("Persisted state unreadable, starting fresh")
		}
		return powerlog.NewState(c.cfg.HistoryDays, c.cfg.EventLimit)
	}

	state, err := powerlog.Decode(data, c.cfg.HistoryDays, c.cfg.EventLimit)
	if err != nil {
		// Corrupt is handled exactly like absent
		logger.Warn().Err(err).Msg("Persisted state corrupt, starting fresh")
		return powerlog.NewState(c.cfg.HistoryDays, c.cfg.EventLimit)
	}

	logger.Debug().
		Int64("last_on", state.LastOn).
		Int64("last_off", state.LastOff).
		Msg("Persisted state loaded")

	return state
}

func (c *Controller) applyMonthlyRetention(now time.Time) {
	if c.state.LastReset == 0 {
		c.state.LastReset = now.Unix()
		return
	}

	last := time.Unix(c.state.LastReset, 0)
	if last.Month() == now.Month() && last.Year() == now.Year() {
		return
	}

	logger.Info().
		Time("last_reset", last).
		Msg("Calendar month changed, wiping history")
	c.state.Reset()
	c.state.LastReset = now.Unix()
}

// closePreviousSession infers the outage that ended the prior cycle and
// folds it into the aggregates. Returns the gap in seconds (0 when
// there was no prior session).
func (c *Controller) closePreviousSession(now time.Time) int64 {
	var boundary int64
	switch {
	case c.state.LastOff > c.state.LastOn:
		// Clean shutdown marked when power went away
		boundary = c.state.LastOff
	case c.state.LastOn > 0:
		// Unclean loss: the last persisted uptime tick is the best
		// estimate of when the device died
		boundary = c.state.LastOn + c.state.Days.Today().Uptime
	default:
		return 0 // first-ever boot, nothing to close
	}

	gap := now.Unix() - boundary
	if gap < 0 {
		// Recovered clock ran behind the persisted state; durations
		// must never go negative
		gap = 0
	}

	today := c.state.Days.Today()
	c.state.LastDowntime = gap
	c.state.LastOff = boundary
	today.Downtime += gap
	today.Outages++
	if gap > today.Longest {
		today.Longest = gap
	}

	off := powerlog.Event{Kind: powerlog.KindOff, At: now.Unix(), Duration: gap}
	c.state.Events.Append(off)
	c.archiveEvent(off)

	logger.Info().
		Int64("outage_sec", gap).
		Uint32("outages_today", today.Outages).
		Msg("Previous session closed")

	c.saveLocked(now)

	return gap
}

func (c *Controller) openSession(now time.Time, gap int64, firstBoot bool) {
	c.state.LastOn = now.Unix()

	on := powerlog.Event{Kind: powerlog.KindOn, At: now.Unix()}
	c.state.Events.Append(on)
	c.archiveEvent(on)

	if err := c.blinker.Blink(); err != nil {
		logger.Debug().Err(err).Msg("Status blink failed")
	}

	if c.publisher != nil {
		err := c.publisher.PublishRestore(notify.RestoreEvent{
			Timestamp:  now,
			Outage:     time.Duration(gap) * time.Second,
			FirstBoot:  firstBoot,
			ClockValid: c.clock.Valid(),
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to publish restore event")
		}
	}

	c.saveLocked(now)

	logger.Info().
		Time("at", now).
		Bool("clock_valid", c.clock.Valid()).
		Msg("Session opened")
}

// Tick runs the periodic maintenance step: recompute today's uptime,
// rotate the day ring across a calendar-day boundary, and autosave.
// Uptime is recomputed from the session start rather than accumulated,
// so it self-corrects after any missed tick.
func (c *Controller) Tick(ctx context.Context) {
	now := c.clock.Now()

	c.mu.Lock()
	today := c.state.Days.Today()
	up := now.Unix() - c.state.LastOn
	if up < 0 {
		up = 0
	}
	today.Uptime = up

	if day := now.Day(); day != c.lastDay {
		// Flush before rotation retires the oldest bucket
		c.saveLocked(now)
		c.state.Days.Rotate()
		c.lastDay = day
		c.saveLocked(now)
		logger.Info().Int("day", day).Msg("Day bucket rotated")
	} else if now.Sub(c.lastSave) >= c.cfg.Autosave {
		c.saveLocked(now)
	}

	// Opportunistic re-anchor while the baseline was never validated.
	// The bookkeeping stays under the lock; the feed query must not.
	resync := !c.clock.Valid() && now.Sub(c.lastResync) >= resyncEvery
	if resync {
		c.lastResync = now
	}
	c.mu.Unlock()

	if resync {
		c.clock.Resync(ctx)
	}
}

// Reset discards all history on demand and reopens the session.
func (c *Controller) Reset() error {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Reset()
	c.state.LastOn = now.Unix()
	c.state.LastReset = now.Unix()
	c.lastDay = now.Day()

	logger.Info().Msg("History cleared")

	return c.saveLocked(now)
}

// Shutdown marks the power-off boundary for a clean stop and persists.
// The next boot computes downtime from this mark instead of estimating.
func (c *Controller) Shutdown() {
	now := c.clock.Now()

	c.mu.Lock()
	c.state.LastOff = now.Unix()
	c.saveLocked(now)
	c.mu.Unlock()

	if err := c.collector.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close event archive")
	}
}

// Snapshot returns a stable copy of the state plus the reconciled now
// for the read path.
func (c *Controller) Snapshot() (powerlog.Snapshot, time.Time) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Snapshot(), now
}

// ClockValid reports whether absolute time was ever recovered.
func (c *Controller) ClockValid() bool {
	return c.clock.Valid()
}

// RawLog returns the persisted blob for export. When nothing has been
// written yet it encodes the live state instead.
func (c *Controller) RawLog() ([]byte, error) {
	data, err := c.blobs.Read(c.cfg.StateBlob)
	if err == nil {
		return data, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Encode()
}

// saveLocked persists the state; callers hold the lock. A write failure
// is logged and the in-memory state stays authoritative: lastSave is
// only advanced on success so the next tick retries.
func (c *Controller) saveLocked(now time.Time) error {
	data, err := c.state.Encode()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode state")
		return err
	}

	if err := c.blobs.Write(c.cfg.StateBlob, data); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("State flush failed, keeping in memory")
		} else {
			logger.Error().Err(err).Msg("State flush failed, keeping in memory")
		}
		return err
	}

	c.lastSave = now

	return nil
}

func (c *Controller) archiveEvent(event powerlog.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.collector.Record(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("Failed to archive event")
	}
}
