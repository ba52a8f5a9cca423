package db

import (
	"strconv"

	"github.com/j-veylop/energy-kpi/internal/interval"
)

// bucketOrigin anchors fixed-width buckets at Monday 2000-01-03T00:00:00Z so weekly
// buckets start on Mondays and daily buckets at UTC midnight.
const bucketOrigin int64 = 946857600000000

// bucketExpr renders the SQL expression that maps the microsecond timestamp column col
// to the start of its bucket. Only integers from the parsed width are interpolated.
func bucketExpr(w interval.BucketWidth, col string) string {
	if w.IsCalendar() {
		return monthBucketExpr(w.Months, col)
	}

	width := strconv.FormatInt(w.Micros, 10)
	origin := strconv.FormatInt(bucketOrigin, 10)
	return "(" + col + " - (((" + col + " - " + origin + ") % " + width + ") + " + width + ") % " + width + ")"
}

// monthBucketExpr counts months since 2000-01, floors the count to a multiple of n and
// converts the result back to microseconds.
func monthBucketExpr(n int64, col string) string {
	secs := "((" + col + " - ((" + col + " % 1000000) + 1000000) % 1000000) / 1000000)"
	idx := "((CAST(strftime('%Y', " + secs + ", 'unixepoch') AS INTEGER) - 2000) * 12" +
		" + CAST(strftime('%m', " + secs + ", 'unixepoch') AS INTEGER) - 1)"
	months := strconv.FormatInt(n, 10)
	bidx := "(" + idx + " - ((" + idx + " % " + months + ") + " + months + ") % " + months + ")"
	return "(unixepoch(date('2000-01-01', printf('%+d months', " + bidx + "))) * 1000000)"
}
