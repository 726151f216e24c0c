package powerlog

import (
	"encoding/json"

	"codeberg.org/mutker/powermon/internal/errors"
)

// SchemaVersion identifies the persisted state layout. Version 0 files
// (no version field) decode as well: the field set is a superset of the
// original unversioned log, so old blobs migrate on first load.
const SchemaVersion = 1

// persistedState is the durable JSON layout. Days and events are stored
// newest first, matching the in-memory ordering.
type persistedState struct {
	Version      int         `json:"version"`
	LastOn       int64       `json:"last_on"`
	LastOff      int64       `json:"last_off"`
	LastDowntime int64       `json:"last_downtime_sec"`
	LastReset    int64       `json:"last_reset,omitempty"`
	Days         []DayBucket `json:"days"`
	Events       []Event     `json:"events"`
}

// Encode serializes the state to its durable JSON form.
func (s *State) Encode() ([]byte, error) {
	errFactory := errors.New()

	p := persistedState{
		Version:      SchemaVersion,
		LastOn:       s.LastOn,
		LastOff:      s.LastOff,
		LastDowntime: s.LastDowntime,
		LastReset:    s.LastReset,
		Days:         s.Days.Snapshot(),
		Events:       s.Events.Recent(s.Events.Len()),
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrStateSave, err)
	}

	return data, nil
}

// Decode parses a durable blob into a fresh State with the configured
// capacities. Entries beyond capacity are dropped oldest-first. A
// malformed blob returns ErrStateDecode; callers fall back to an empty
// state rather than surfacing it.
func Decode(data []byte, historyDays, eventLimit int) (*State, error) {
	errFactory := errors.New()

	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errFactory.Wrap(errors.ErrStateDecode, err)
	}
	if p.Version > SchemaVersion {
		return nil, errFactory.WithData(errors.ErrStateDecode, p.Version)
	}

	s := NewState(historyDays, eventLimit)
	s.LastOn = p.LastOn
	s.LastOff = p.LastOff
	s.LastDowntime = p.LastDowntime
	s.LastReset = p.LastReset

	// Stored newest first: slot i is "i days ago".
	days := p.Days
	if len(days) > historyDays {
		days = days[:historyDays]
	}
	for i := range days {
		*s.dayAt(i) = days[i]
	}

	// Events replay oldest first so front-insertion reproduces the
	// stored order.

	events := p.Events
	if len(events) > eventLimit {
		events = events[:eventLimit]
	}
	for i := len(events) - 1; i >= 0; i-- {
		s.Events.Append(events[i])
	}

	return s, nil
}

// dayAt returns the bucket i days ago for decode backfill.
func (s *State) dayAt(i int) *DayBucket {
	idx := (s.Days.head + i) % len(s.Days.buf)
	return &s.Days.buf[idx]
}
