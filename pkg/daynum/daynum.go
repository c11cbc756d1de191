// Package daynum converts calendar dates to proleptic Gregorian day
// numbers so streak and rolling-window math reduces to plain integer
// subtraction, independent of timezone quirks.
package daynum

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedDate is returned when a timestamp does not start with a
// parsable YYYY-MM-DD prefix.
var ErrMalformedDate = errors.New("malformed date")

// epochShift aligns day zero with 1970-01-01 in the civil-days algorithm.
const epochShift = 719468

// FromCivil returns the day number for a calendar date. Day 0 is
// 1970-01-01; earlier dates are negative.
func FromCivil(year, month, day int) int {
	if month <= 2 {
		year--
	}
	era := year / 400
	if year < 0 {
		era = (year - 399) / 400
	}
	yoe := year - era*400
	mp := month + 9
	if month > 2 {
		mp = month - 3
	}
	doy := (153*mp+2)/5 + day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - epochShift
}

// ToCivil is the inverse of FromCivil.
func ToCivil(daySerial int) (year, month, day int) {
	z := daySerial + epochShift
	era := z / 146097
	if z < 0 {
		era = (z - 146096) / 146097
	}
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	year = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	day = doy - (153*mp+2)/5 + 1
	month = mp + 3
	if mp >= 10 {
		month = mp - 9
	}
	if month <= 2 {
		year++
	}
	return year, month, day
}

// FromTime returns the day number of t in its own location.
func FromTime(t time.Time) int {
	y, m, d := t.Date()
	return FromCivil(y, int(m), d)
}

// Parse extracts the day number from the leading YYYY-MM-DD of an ISO
// timestamp. Trailing time and offset components are ignored.
func Parse(value string) (int, error) {
	if len(value) < 10 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDate, value)
	}

	t, err := time.Parse(time.DateOnly, value[:10])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDate, value)
	}

	return FromTime(t), nil
}

// ISO formats a day number as YYYY-MM-DD.
func ISO(daySerial int) string {
	y, m, d := ToCivil(daySerial)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
