package web

import (
	"encoding/json"
	"fmt"
	"time"

	"codeberg.org/mutker/powermon/internal/powerlog"
	"codeberg.org/mutker/powermon/internal/stats"
)

const weeklyWindow = 7

// Status is the view model shared by the HTML and JSON renderers.
type Status struct {
	Since         string
	Session       string
	LastDowntime  string
	Outages       uint32
	TodayUptime   string
	TodayDowntime string
	LongestOutage string
	ClockValid    bool
	Hourly        [24]int64
	Weekdays      []string
	WeeklyUptime  []float64
	Week          stats.WindowStats
	HalfMonth     stats.WindowStats
	Month         stats.WindowStats
}

// StatusJSON is the JSON representation served at /status.
type StatusJSON struct {
	Since         string      `json:"since"`
	Session       string      `json:"session"`
	LastDowntime  string      `json:"last_downtime"`
	Outages       uint32      `json:"outages"`
	TodayUptime   string      `json:"today_uptime"`
	TodayDowntime string      `json:"today_downtime"`
	LongestOutage string      `json:"longest_outage"`
	ClockValid    bool        `json:"clock_valid"`
	HourlyUptime  []int64     `json:"hourly_uptime"`
	Weekdays      []string    `json:"weekdays"`
	WeeklyUptime  []float64   `json:"weekly_uptime"`
	Windows       WindowsJSON `json:"windows"`
}

// WindowsJSON carries the rolling uptime/downtime totals.
type WindowsJSON struct {
	Week      WindowJSON `json:"week"`
	HalfMonth WindowJSON `json:"half_month"`
	Month     WindowJSON `json:"month"`
}

// WindowJSON is one rolling window's totals in seconds.
type WindowJSON struct {
	UptimeSec   int64 `json:"uptime_sec"`
	DowntimeSec int64 `json:"downtime_sec"`
}

// FormatHM renders whole seconds as "02h 05m".
func FormatHM(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60

	return fmt.Sprintf("%02dh %02dm", h, m)
}

func buildStatus(snap powerlog.Snapshot, now time.Time, clockValid bool) Status {
	today := powerlog.DayBucket{}
	if len(snap.Days) > 0 {
		today = snap.Days[0]
	}

	series := stats.DailySeries(snap, weeklyWindow)
	weekdays := make([]string, len(series))
	weekly := make([]float64, len(series))
	for i, p := range series {
		weekdays[i] = p.Label
		weekly[i] = p.UptimeHours
	}

	return Status{
		Since:         time.Unix(snap.LastOn, 0).UTC().Format("Mon Jan 2 15:04"),
		Session:       FormatHM(int64(stats.SessionLength(snap, now).Seconds())),
		LastDowntime:  FormatHM(snap.LastDowntime),
		Outages:       today.Outages,
		TodayUptime:   FormatHM(today.Uptime),
		TodayDowntime: FormatHM(today.Downtime),
		LongestOutage: FormatHM(today.Longest),
		ClockValid:    clockValid,
		Hourly:        stats.HourlyProfile(snap),
		Weekdays:      weekdays,
		WeeklyUptime:  weekly,
		Week:          stats.Window(snap, 7),
		HalfMonth:     stats.Window(snap, 15),
		Month:         stats.MonthToDate(snap, now),
	}
}

func formatJSON(snap powerlog.Snapshot, now time.Time, clockValid bool) []byte {
	st := buildStatus(snap, now, clockValid)

	sj := StatusJSON{
		Since:         st.Since,
		Session:       st.Session,
		LastDowntime:  st.LastDowntime,
		Outages:       st.Outages,
		TodayUptime:   st.TodayUptime,
		TodayDowntime: st.TodayDowntime,
		LongestOutage: st.LongestOutage,
		ClockValid:    st.ClockValid,
		HourlyUptime:  st.Hourly[:],
		Weekdays:      st.Weekdays,
		WeeklyUptime:  st.WeeklyUptime,
		Windows: WindowsJSON{
			Week:      WindowJSON{UptimeSec: st.Week.OnTotal, DowntimeSec: st.Week.OffTotal},
			HalfMonth: WindowJSON{UptimeSec: st.HalfMonth.OnTotal, DowntimeSec: st.HalfMonth.OffTotal},
			Month:     WindowJSON{UptimeSec: st.Month.OnTotal, DowntimeSec: st.Month.OffTotal},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")

	return data
}
