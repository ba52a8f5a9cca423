package db

import (
	"database/sql"
	"time"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = constError("not found")

// SQL query fragments used across multiple functions
const (
	// sqlMetaColumns selects a meta row with its carrier name and timestamp bounds.
	sqlMetaColumns = `
		meta.id, meta.identifier, meta.unit, energy_carrier.name, meta.consumption,
		meta.description, meta.local, MIN(ts.series_timestamp), MAX(ts.series_timestamp)`

	sqlMetaFrom = `
		FROM meta
			LEFT JOIN energy_carrier ON meta.carrier = energy_carrier.id
			LEFT JOIN ts ON meta.id = ts.meta_id`

	// sqlRangeClause filters ts rows by an inclusive microsecond window.
	sqlRangeClause = "ts.series_timestamp BETWEEN ? AND ?"

	// sqlProductionClause matches on-site production series. Series without a local
	// flag count as on-site; the grid mix must be flagged local=false explicitly.
	sqlProductionClause = "m.consumption = 0 AND COALESCE(m.local, 1) = 1"
)

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMicros(v.Int64)
	return &t
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullBoolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

// boolArg converts an optional flag into a nullable INTEGER argument.
func boolArg(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
