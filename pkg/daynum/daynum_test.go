package daynum_test

import (
	"testing"
	"time"

	"github.com/comm0ns/engage/pkg/daynum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCivil(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		y, m, d, want int
	}{
		{"epoch", 1970, 1, 1, 0},
		{"day after epoch", 1970, 1, 2, 1},
		{"day before epoch", 1969, 12, 31, -1},
		{"leap day 2000", 2000, 2, 29, 11016},
		{"march after leap day", 2000, 3, 1, 11017},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, daynum.FromCivil(tt.y, tt.m, tt.d))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, serial := range []int{-1000, -1, 0, 1, 365, 11016, 20000, 50000} {
		y, m, d := daynum.ToCivil(serial)
		assert.Equal(t, serial, daynum.FromCivil(y, m, d), "serial=%d", serial)
	}
}

func TestConsecutiveDaysDifferByOne(t *testing.T) {
	t.Parallel()

	// Day numbers must support streak math by plain subtraction across
	// month and year boundaries.
	prev := daynum.FromCivil(2023, 12, 30)
	for _, date := range [][3]int{{2023, 12, 31}, {2024, 1, 1}, {2024, 1, 2}} {
		cur := daynum.FromCivil(date[0], date[1], date[2])
		assert.Equal(t, prev+1, cur, "%v", date)
		prev = cur
	}
}

func TestFromTime(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, daynum.FromCivil(2026, 3, 14), daynum.FromTime(ts))
}

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"date only", "2026-01-18", daynum.FromCivil(2026, 1, 18), false},
		{"full timestamp", "2026-01-18T15:00:00+00:00", daynum.FromCivil(2026, 1, 18), false},
		{"empty", "", 0, true},
		{"too short", "2026-01", 0, true},
		{"garbage", "not-a-date", 0, true},
		{"invalid month", "2026-13-01T00:00:00Z", 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := daynum.Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, daynum.ErrMalformedDate)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestISO(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1970-01-01", daynum.ISO(0))
	assert.Equal(t, "2000-02-29", daynum.ISO(daynum.FromCivil(2000, 2, 29)))
}
