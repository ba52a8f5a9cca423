package models

import "time"

// TimeRange is a resolved query window. From <= To is not enforced; an inverted range
// simply matches nothing.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ResolveTimeRange fills in missing bounds: from defaults to the Unix epoch and to
// defaults to now. Both bounds are returned in UTC.
func ResolveTimeRange(from, to *time.Time, now time.Time) TimeRange {
	rng := TimeRange{
		From: time.Unix(0, 0).UTC(),
		To:   now.UTC(),
	}
	if from != nil {
		rng.From = from.UTC()
	}
	if to != nil {
		rng.To = to.UTC()
	}
	return rng
}

// Last returns the window of length d ending at now.
func Last(d time.Duration, now time.Time) TimeRange {
	now = now.UTC()
	return TimeRange{From: now.Add(-d), To: now}
}

// Contains reports whether t lies within the inclusive range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
