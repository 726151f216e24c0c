// Package stats computes derived views over a powerlog snapshot. All
// functions are pure: they take a snapshot plus the reconciled now and
// never mutate anything, so they can be called from concurrent request
// handlers.
package stats

import (
	"fmt"
	"time"

	"codeberg.org/mutker/powermon/internal/powerlog"
)

// WindowStats totals uptime and downtime over a span of day buckets.
// Bucket granularity is deliberate: on constrained hardware the windowed
// views sum the day ring rather than re-scanning raw events, trading
// day-boundary accuracy for constant cost.
type WindowStats struct {
	OnTotal  int64 // seconds
	OffTotal int64 // seconds
}

// DayPoint is one entry of the per-day series for charting.
type DayPoint struct {
	Label       string
	UptimeHours float64
}

// SessionLength returns how long the current session has been open.
func SessionLength(snap powerlog.Snapshot, now time.Time) time.Duration {
	sec := now.Unix() - snap.LastOn
	if sec < 0 {
		sec = 0
	}

	return time.Duration(sec) * time.Second
}

// LastDowntime returns the most recent completed outage length, exactly
// as recorded.
func LastDowntime(snap powerlog.Snapshot) time.Duration {
	return time.Duration(snap.LastDowntime) * time.Second
}

// Window sums the first min(days, history) buckets, today included.
func Window(snap powerlog.Snapshot, days int) WindowStats {
	if days > len(snap.Days) {
		days = len(snap.Days)
	}

	var w WindowStats
	for i := 0; i < days; i++ {
		w.OnTotal += snap.Days[i].Uptime
		w.OffTotal += snap.Days[i].Downtime
	}

	return w
}

// MonthToDate covers the current calendar month: day-of-month buckets,
// capped to the retained history.
func MonthToDate(snap powerlog.Snapshot, now time.Time) WindowStats {
	return Window(snap, now.Day())
}

// HourlyProfile spreads today's uptime minutes evenly across 24 slots.
// This is a placeholder distribution, not a per-hour histogram: event
// timestamps are not bucketed by hour of day.
func HourlyProfile(snap powerlog.Snapshot) [24]int64 {
	var profile [24]int64
	if len(snap.Days) == 0 {
		return profile
	}

	perSlot := snap.Days[0].Uptime / 60 / 24
	for i := range profile {
		profile[i] = perSlot
	}

	return profile
}

// DailySeries returns (label, uptime-hours) pairs for the first window
// buckets, today first.
func DailySeries(snap powerlog.Snapshot, window int) []DayPoint {
	if window > len(snap.Days) {
		window = len(snap.Days)
	}

	series := make([]DayPoint, window)
	for i := 0; i < window; i++ {
		series[i] = DayPoint{
			Label:       fmt.Sprintf("Day-%d", i+1),
			UptimeHours: float64(snap.Days[i].Uptime) / 3600.0,
		}
	}

	return series
}
