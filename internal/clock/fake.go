package clock

import (
	"context"
	"time"

	"codeberg.org/mutker/powermon/internal/errors"
)

// FakeFeed is a scripted TimeFeed for tests. Each Fetch consumes the
// next reading; a zero time in the script yields an error.
type FakeFeed struct {
	Readings []time.Time
	Fetches  int
}

func (f *FakeFeed) Fetch(_ context.Context) (time.Time, error) {
	f.Fetches++

	if len(f.Readings) == 0 {
		return time.Time{}, errors.New().New(errors.ErrTimeSyncFailed)
	}

	next := f.Readings[0]
	if len(f.Readings) > 1 {
		f.Readings = f.Readings[1:]
	}
	if next.IsZero() {
		return time.Time{}, errors.New().New(errors.ErrTimeSyncFailed)
	}

	return next, nil
}
