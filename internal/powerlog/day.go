package powerlog

// DayBucket accumulates one local calendar day of statistics. Index 0 of
// the ring is always today; buckets are frozen once rotated out.
type DayBucket struct {
	Uptime   int64  `json:"uptime"`
	Downtime int64  `json:"downtime"`
	Outages  uint32 `json:"outages"`
	Longest  int64  `json:"longest"`
}

// DayRing is a fixed-size ring of day buckets. It is never empty: every
// slot holds a (possibly zeroed) bucket from construction onward.
type DayRing struct {
	buf  []DayBucket
	head int // slot of today's bucket
}

func NewDayRing(days int) *DayRing {
	if days < 1 {
		days = 1
	}

	return &DayRing{buf: make([]DayBucket, days)}
}

// Today returns a mutable reference to the current day's bucket.
func (r *DayRing) Today() *DayBucket {
	return &r.buf[r.head]
}

// Len returns the fixed number of day buckets.
func (r *DayRing) Len() int {
	return len(r.buf)
}

// Rotate starts a fresh bucket for the new day, evicting the oldest.
// Callers invoke this exactly once per day-boundary crossing.
func (r *DayRing) Rotate() {
	r.head = (r.head - 1 + len(r.buf)) % len(r.buf)
	r.buf[r.head] = DayBucket{}
}

// Clear zeroes every bucket. Used only by full resets.
func (r *DayRing) Clear() {
	for i := range r.buf {
		r.buf[i] = DayBucket{}
	}
	r.head = 0
}

// Snapshot returns a copy of the buckets ordered newest first, so that
// index i is "i days ago".
func (r *DayRing) Snapshot() []DayBucket {
	out := make([]DayBucket, len(r.buf))
	for i := range r.buf {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}

	return out
}
