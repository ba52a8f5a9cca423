package interval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FixedWidths(t *testing.T) {
	tests := []struct {
		raw    string
		micros int64
	}{
		{"1hour", 3_600_000_000},
		{"30min", 1_800_000_000},
		{"30minute", 1_800_000_000},
		{"15min", 900_000_000},
		{"1day", 86_400_000_000},
		{"2week", 2 * 7 * 86_400_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			iv, err := Parse(tt.raw)
			require.NoError(t, err)

			w := iv.Width()
			assert.False(t, w.IsCalendar())
			assert.Equal(t, tt.micros, w.Micros)
			assert.Zero(t, w.Months)
		})
	}
}

func TestParse_CalendarWidths(t *testing.T) {
	iv, err := Parse("2month")
	require.NoError(t, err)
	assert.Equal(t, BucketWidth{Months: 2}, iv.Width())

	iv, err = Parse("3year")
	require.NoError(t, err)
	assert.Equal(t, BucketWidth{Months: 36}, iv.Width())
	assert.True(t, iv.Width().IsCalendar())
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{
		"invalid",
		"1decade",
		"",
		"hour",
		"0hour",
		"-1hour",
		"1 hour",
		" 1hour",
		"1hour ",
		"1Hour",
		"1hours",
		"1.5hour",
		"1hour; drop table ts",
		"99999999999999999999hour",
		"9223372036854775807minute",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInterval))
		})
	}
}

func TestHoursPerInterval(t *testing.T) {
	tests := map[string]float64{
		"30min":  0.5,
		"15min":  0.25,
		"1hour":  1,
		"2day":   48,
		"1week":  168,
		"2month": 1460,
		"1year":  8760,
	}

	for raw, want := range tests {
		got, err := HoursPerInterval(raw)
		require.NoError(t, err, raw)
		assert.InDelta(t, want, got, 1e-12, raw)
	}

	_, err := HoursPerInterval("1fortnight")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRoundTrip_WidthMatchesHours(t *testing.T) {
	for _, raw := range []string{"1min", "45minute", "6hour", "3day", "4week"} {
		iv := MustParse(raw)
		hoursFromWidth := float64(iv.Width().Micros) / float64(microsPerHour)
		assert.InDelta(t, iv.Hours(), hoursFromWidth, 1e-9, raw)
	}
}

func TestKey_NormalizesEquivalentWidths(t *testing.T) {
	assert.Equal(t, MustParse("60min").Key(), MustParse("1hour").Key())
	assert.Equal(t, MustParse("24hour").Key(), MustParse("1day").Key())
	assert.Equal(t, MustParse("12month").Key(), MustParse("1year").Key())
	assert.NotEqual(t, MustParse("1hour").Key(), MustParse("1day").Key())
	assert.NotEqual(t, MustParse("4week").Key(), MustParse("1month").Key())
}

func TestString_Canonical(t *testing.T) {
	assert.Equal(t, "30minute", MustParse("30min").String())
	assert.Equal(t, "1hour", MustParse("1hour").String())
	assert.Equal(t, "2month", MustParse("2month").String())
}

func TestValidate(t *testing.T) {
	for _, raw := range []string{"1hour", "30min", "5minute", "2month", "1year", "3week", "7day"} {
		assert.NoError(t, Validate(raw), raw)
	}

	for _, raw := range []string{"", "1", "hour", "00hour", "1hour'", "1 day", "1day--", "1decade", "1h"} {
		assert.ErrorIs(t, Validate(raw), ErrInvalidInterval, raw)
	}
}

func TestParseStrict(t *testing.T) {
	iv, err := ParseStrict("15min")
	require.NoError(t, err)
	assert.Equal(t, Interval{Count: 15, Unit: Minute}, iv)

	_, err = ParseStrict("1hour) union select 1 --")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}
