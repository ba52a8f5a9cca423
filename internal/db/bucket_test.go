package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/energy-kpi/internal/interval"
)

func evalBucket(t *testing.T, db *DB, raw string, ts time.Time) time.Time {
	t.Helper()
	query := "SELECT " + bucketExpr(interval.MustParse(raw).Width(), "v") + " FROM (SELECT ? AS v)"
	var us int64
	require.NoError(t, db.QueryRowContext(context.Background(), query, toMicros(ts)).Scan(&us))
	return fromMicros(us)
}

func TestBucketExpr(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	tests := []struct {
		name     string
		interval string
		ts       time.Time
		want     time.Time
	}{
		{
			name:     "hour",
			interval: "1hour",
			ts:       time.Date(2024, 5, 10, 13, 42, 7, 0, time.UTC),
			want:     time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC),
		},
		{
			name:     "15 minutes",
			interval: "15min",
			ts:       time.Date(2024, 5, 10, 13, 42, 7, 0, time.UTC),
			want:     time.Date(2024, 5, 10, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "day at midnight",
			interval: "1day",
			ts:       time.Date(2024, 5, 10, 23, 59, 59, 0, time.UTC),
			want:     time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "week starts on monday",
			interval: "1week",
			ts:       time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "before origin",
			interval: "1day",
			ts:       time.Date(1999, 12, 31, 8, 0, 0, 0, time.UTC),
			want:     time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "month",
			interval: "1month",
			ts:       time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "two months",
			interval: "2month",
			ts:       time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "year",
			interval: "1year",
			ts:       time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalBucket(t, db, tt.interval, tt.ts))
		})
	}
}

func TestBucketExpr_EquivalentIntervals(t *testing.T) {
	a := bucketExpr(interval.MustParse("60min").Width(), "c")
	b := bucketExpr(interval.MustParse("1hour").Width(), "c")
	assert.Equal(t, a, b)

	assert.Equal(t,
		bucketExpr(interval.MustParse("12month").Width(), "c"),
		bucketExpr(interval.MustParse("1year").Width(), "c"),
	)
}
