// Package clock reconstructs a best-effort absolute time on a device
// with no RTC. A wall-clock baseline is fixed once at boot from the
// network time feed, or from the last persisted timestamp when the feed
// is unavailable; from then on Now() is baseline plus the monotonic
// elapsed offset. No other package reads time directly.
package clock

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
)

const (
	syncAttempts = 3
	attemptDelay = 500 * time.Millisecond

	// driftThreshold is how far a later feed reading may diverge from
	// the derived clock before an opportunistic resync shifts the
	// baseline.
	driftThreshold = 30 * time.Second
)

// sanityFloor rejects implausible feed values: anything before it means
// the source is reporting an unset clock, not real time.
var sanityFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimeFeed supplies best-effort wall-clock readings from the network.
type TimeFeed interface {
	Fetch(ctx context.Context) (time.Time, error)
}

// Reconciler derives absolute time from a baseline plus the process
// monotonic counter.
type Reconciler struct {
	mu       sync.Mutex
	feed     TimeFeed
	elapsed  func() time.Duration
	baseline time.Time // absolute time at elapsed() == 0
	valid    bool      // baseline came from a plausible feed reading
}

// New returns a Reconciler anchored to the process monotonic clock.
// The feed may be nil when no network time source exists.
func New(feed TimeFeed) *Reconciler {
	start := time.Now()

	return NewWithElapsed(feed, func() time.Duration {
		return time.Since(start)
	})
}

// NewWithElapsed injects the elapsed-time source. Tests use this to run
// all scenarios deterministically without real hardware or network.
func NewWithElapsed(feed TimeFeed, elapsed func() time.Duration) *Reconciler {
	return &Reconciler{feed: feed, elapsed: elapsed}
}

// Sync establishes the absolute baseline at boot. It tries the feed a
// bounded number of times within ctx; on failure or an implausible
// reading it falls back to lastKnown (the persisted last-on timestamp),
// or to the epoch when no prior state exists. Sync never fails: the
// device must finish booting with whatever baseline it can get.
func (r *Reconciler) Sync(ctx context.Context, lastKnown time.Time) {
	now, err := r.fetchPlausible(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		r.baseline = now.Add(-r.elapsed())
		r.valid = true
		logger.Info().Time("now", now).Msg("Wall-clock time recovered from feed")
		return
	}

	if lastKnown.IsZero() {
		lastKnown = time.Unix(0, 0)
	}
	r.baseline = lastKnown.Add(-r.elapsed())
	r.valid = false
	logger.Warn().
		Err(err).
		Time("fallback", lastKnown).
		Msg("Time feed unavailable, deriving clock from persisted state")
}

// Now returns the current best-effort absolute time. It is monotonically
// non-decreasing for the life of the process regardless of baseline
// quality.
func (r *Reconciler) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.baseline.Add(r.elapsed())
}

// Valid reports whether the baseline came from a plausible feed reading.
// When false, durations are still correct but calendar boundaries may
// not be.
func (r *Reconciler) Valid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.valid
}

// Resync opportunistically re-queries the feed and shifts the baseline
// if it was never valid or has drifted beyond the threshold. Returns
// whether the baseline moved.
func (r *Reconciler) Resync(ctx context.Context) bool {
	now, err := r.fetchPlausible(ctx)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	derived := r.baseline.Add(r.elapsed())
	drift := now.Sub(derived)
	if r.valid && drift < driftThreshold && drift > -driftThreshold {
		return false
	}

	r.baseline = now.Add(-r.elapsed())
	r.valid = true
	logger.Info().
		Dur("drift", drift).
		Time("now", now).
		Msg("Baseline resynced from time feed")

	return true
}

func (r *Reconciler) fetchPlausible(ctx context.Context) (time.Time, error) {
	errFactory := errors.New()

	if r.feed == nil {
		return time.Time{}, errFactory.New(errors.ErrTimeSyncFailed)
	}

	var lastErr error
	for attempt := 0; attempt < syncAttempts; attempt++ {
		if ctx.Err() != nil {
			return time.Time{}, errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		}

		now, err := r.feed.Fetch(ctx)
		if err == nil {
			if now.Before(sanityFloor) {
				lastErr = errFactory.WithData(errors.ErrTimeImplausible, now.Unix())
				continue
			}
			return now, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return time.Time{}, errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		case <-time.After(attemptDelay):
		}
	}

	return time.Time{}, errFactory.Wrap(errors.ErrTimeFeedExhausted, lastErr)
}
