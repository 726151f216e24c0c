package powerlog

// State is the single unit of durability: the most recent session
// boundaries plus the event log and day ring. It is owned exclusively by
// the lifecycle controller; queries operate on Snapshot copies.
type State struct {
	LastOn       int64 // epoch seconds of the current session open
	LastOff      int64 // end of the most recent completed downtime, 0 if none
	LastDowntime int64 // seconds of the most recent completed downtime
	LastReset    int64 // epoch seconds of the last full wipe (monthly policy marker)
	Days         *DayRing
	Events       *EventLog
}

// NewState returns an initialized empty state: zero boundaries, a full
// ring of zeroed day buckets, and an empty event log.
func NewState(historyDays, eventLimit int) *State {
	return &State{
		Days:   NewDayRing(historyDays),
		Events: NewEventLog(eventLimit),
	}
}

// Reset clears all history while keeping the configured capacities.
// Session boundaries are zeroed; the caller reopens the session.
func (s *State) Reset() {
	s.LastOn = 0
	s.LastOff = 0
	s.LastDowntime = 0
	s.Days.Clear()
	s.Events.Clear()
}

// Snapshot is a value copy of State, safe to read without holding the
// controller's lock.
type Snapshot struct {
	LastOn       int64
	LastOff      int64
	LastDowntime int64
	LastReset    int64
	Days         []DayBucket // index 0 = today
	Events       []Event     // newest first
}

// Snapshot copies the state out for the read path.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		LastOn:       s.LastOn,
		LastOff:      s.LastOff,
		LastDowntime: s.LastDowntime,
		LastReset:    s.LastReset,
		Days:         s.Days.Snapshot(),
		Events:       s.Events.Recent(s.Events.Len()),
	}
}
