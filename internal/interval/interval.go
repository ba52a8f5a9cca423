// Package interval parses resampling interval strings such as "15min", "1hour" or "2month"
// into calendar-aware bucket widths.
package interval

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Unit is a calendar unit an interval is expressed in.
type Unit int

const (
	// Minute is a fixed 60 second unit.
	Minute Unit = iota + 1
	// Hour is a fixed 60 minute unit.
	Hour
	// Day is a fixed 24 hour unit.
	Day
	// Week is a fixed 7 day unit.
	Week
	// Month is a calendar month and has no fixed duration.
	Month
	// Year is twelve calendar months.
	Year
)

// Default is the interval used when a caller does not specify one.
const Default = "1hour"

const (
	microsPerMinute = int64(60 * 1_000_000)
	microsPerHour   = 60 * microsPerMinute
	microsPerDay    = 24 * microsPerHour
	microsPerWeek   = 7 * microsPerDay

	// hoursPerMonth approximates an average month (8760 / 12).
	hoursPerMonth = 730.0
	hoursPerYear  = 8760.0
)

// unitTokens is the single allow-list of accepted unit spellings.
// "min" is accepted as a short spelling of "minute".
var unitTokens = map[string]Unit{
	"min":    Minute,
	"minute": Minute,
	"hour":   Hour,
	"day":    Day,
	"week":   Week,
	"month":  Month,
	"year":   Year,
}

var pattern = regexp.MustCompile(`^(\d+)(minute|min|hour|day|week|month|year)$`)

// String returns the canonical token for the unit.
func (u Unit) String() string {
	switch u {
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	default:
		return "unknown"
	}
}

// micros returns the fixed width of one unit, or 0 for calendar units.
func (u Unit) micros() int64 {
	switch u {
	case Minute:
		return microsPerMinute
	case Hour:
		return microsPerHour
	case Day:
		return microsPerDay
	case Week:
		return microsPerWeek
	default:
		return 0
	}
}

// Interval is a parsed resampling interval.
type Interval struct {
	Count int64
	Unit  Unit
}

// BucketWidth is the width of a time bucket. Exactly one of the fields is non-zero:
// fixed widths are expressed in microseconds, calendar widths in months.
type BucketWidth struct {
	Micros int64
	Months int64
}

// IsCalendar reports whether the width is a number of calendar months.
func (w BucketWidth) IsCalendar() bool {
	return w.Months > 0
}

// Parse parses raw into an Interval. It returns an error wrapping ErrInvalidInterval
// for malformed strings, unknown units, a zero count, or counts that overflow.
func Parse(raw string) (Interval, error) {
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
	}

	count, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %q: count out of range", ErrInvalidInterval, raw)
	}
	if count <= 0 {
		return Interval{}, fmt.Errorf("%w: %q: count must be positive", ErrInvalidInterval, raw)
	}

	unit, ok := unitTokens[match[2]]
	if !ok {
		return Interval{}, fmt.Errorf("%w: %q: unknown unit", ErrInvalidInterval, raw)
	}

	iv := Interval{Count: count, Unit: unit}
	if iv.overflows() {
		return Interval{}, fmt.Errorf("%w: %q: count out of range", ErrInvalidInterval, raw)
	}
	return iv, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(raw string) Interval {
	iv, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv Interval) overflows() bool {
	switch iv.Unit {
	case Month:
		return false
	case Year:
		return iv.Count > math.MaxInt64/12
	default:
		return iv.Count > math.MaxInt64/iv.Unit.micros()
	}
}

// Width returns the bucket width. Months stay symbolic because their length varies;
// a year is twelve months.
func (iv Interval) Width() BucketWidth {
	switch iv.Unit {
	case Month:
		return BucketWidth{Months: iv.Count}
	case Year:
		return BucketWidth{Months: 12 * iv.Count}
	default:
		return BucketWidth{Micros: iv.Count * iv.Unit.micros()}
	}
}

// Hours returns the number of hours one bucket represents. Months count as 730 hours and
// years as 8760 hours, so the value is only exact for fixed units.
func (iv Interval) Hours() float64 {
	n := float64(iv.Count)
	switch iv.Unit {
	case Minute:
		return n / 60
	case Hour:
		return n
	case Day:
		return 24 * n
	case Week:
		return 168 * n
	case Month:
		return hoursPerMonth * n
	case Year:
		return hoursPerYear * n
	default:
		return 0
	}
}

// String returns the canonical spelling, e.g. "30minute".
func (iv Interval) String() string {
	return strconv.FormatInt(iv.Count, 10) + iv.Unit.String()
}

// Key returns a normalized representation of the bucket width. Intervals describing the
// same width ("60min" and "1hour", "12month" and "1year") share a key.
func (iv Interval) Key() string {
	w := iv.Width()
	if w.IsCalendar() {
		return strconv.FormatInt(w.Months, 10) + "mo"
	}
	return strconv.FormatInt(w.Micros, 10) + "us"
}

// HoursPerInterval parses raw and returns the hours per bucket.
func HoursPerInterval(raw string) (float64, error) {
	iv, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	return iv.Hours(), nil
}
