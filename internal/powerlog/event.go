// Package powerlog holds the power availability history: the bounded
// transition log, the per-day aggregate ring, and the persisted state
// that ties them together. All timestamps are epoch seconds and all
// durations are whole seconds; nothing here reads the clock.
package powerlog

// Kind classifies a power transition.
type Kind string

const (
	// KindOn marks a session open (power restored or first boot).
	KindOn Kind = "on"
	// KindOff marks an inferred outage, closed at the next boot.
	KindOff Kind = "off"
)

// Event is a single recorded power transition. Duration is the outage
// length for "off" events and zero for "on" events. Immutable once
// appended.
type Event struct {
	Kind     Kind  `json:"type"`
	At       int64 `json:"at"`
	Duration int64 `json:"duration"`
}

// EventLog is a fixed-capacity ring of events, newest first. Appending
// beyond capacity silently evicts the oldest entry.
type EventLog struct {
	buf   []Event
	head  int // slot of the newest entry
	count int
}

func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}

	return &EventLog{buf: make([]Event, capacity)}
}

// Append inserts e at the front of the log.
func (l *EventLog) Append(e Event) {
	l.head = (l.head - 1 + len(l.buf)) % len(l.buf)
	l.buf[l.head] = e
	if l.count < len(l.buf) {
		l.count++
	}
}

// Len returns the number of stored events.
func (l *EventLog) Len() int {
	return l.count
}

// Cap returns the fixed capacity of the log.
func (l *EventLog) Cap() int {
	return len(l.buf)
}

// Recent returns up to n events, newest first.
func (l *EventLog) Recent(n int) []Event {
	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}

	return out
}

// Clear empties the log. Used only by full resets.
func (l *EventLog) Clear() {
	l.head = 0
	l.count = 0
}
