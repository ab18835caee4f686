package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayFormats(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 2026-10-17 21:00 UTC 在 IST 已是隔天
	ts := time.Date(2026, 10, 17, 21, 0, 5, 0, time.UTC)

	assert.Equal(t, "October 18, 2026", FormatDisplayDate(ts, loc))
	assert.Equal(t, "2:30:05 AM", FormatDisplayTime(ts, loc))
	assert.Equal(t, "2026-10-18", FormatISODate(ts, loc))
	assert.Equal(t, ts.UnixMilli(), ToUnixMilli(ts))
}

func TestParseISODate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	d, err := ParseISODate("2026-10-20", loc)
	require.NoError(t, err)
	assert.Equal(t, "October 20, 2026", FormatDisplayDate(d, loc))
	assert.Equal(t, 0, d.Hour())

	_, err = ParseISODate("20/10/2026", loc)
	assert.Error(t, err)
}

func TestParseLegacyDateTime(t *testing.T) {
	loc := time.UTC

	testCases := []struct {
		name  string
		date  string
		clock string
		want  time.Time
	}{
		{"下午", "October 17, 2026", "3:04:05 PM", time.Date(2026, 10, 17, 15, 4, 5, 0, loc)},
		{"上午", "January 2, 2026", "9:00:00 AM", time.Date(2026, 1, 2, 9, 0, 0, 0, loc)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLegacyDateTime(tc.date, tc.clock, loc)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseLegacyDateTime("not a date", "", loc)
	assert.Error(t, err)
}
