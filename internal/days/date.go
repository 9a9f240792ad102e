// Package days implements naive calendar-date arithmetic for meet days.
//
// Dates are canonical "YYYY-MM-DD" strings with no timezone attached. All
// arithmetic goes through a linear day index (days since 1970-01-01), and a
// string is valid only if it survives the round trip through that index
// unchanged, which rejects values such as "2023-02-30".
package days

import (
	"regexp"
	"strconv"
	"time"
)

// Layout is the canonical date layout.
const Layout = "2006-01-02"

const secondsPerDay = 86400

var ymdRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Parse splits s into its numeric components. ok is false unless s has the
// YYYY-MM-DD shape and all three components are non-zero. Parse does not
// check that the day exists in the month; use IsValid for that.
func Parse(s string) (y, m, d int, ok bool) {
	if !ymdRE.MatchString(s) {
		return 0, 0, 0, false
	}
	y, _ = strconv.Atoi(s[0:4])
	m, _ = strconv.Atoi(s[5:7])
	d, _ = strconv.Atoi(s[8:10])
	if y == 0 || m == 0 || d == 0 {
		return 0, 0, 0, false
	}
	return y, m, d, true
}

// MinYear is the earliest year IsValid accepts.
const MinYear = 1000

// IsValid reports whether s is a canonical calendar date in year MinYear or
// later.
func IsValid(s string) bool {
	y, m, d, ok := Parse(s)
	if !ok || y < MinYear {
		return false
	}
	return FromDayIndex(utcDayIndex(y, m, d)) == s
}

// ToDayIndex converts a valid date into its day index. ok is false for
// invalid input; callers must treat such an index as incomparable.
func ToDayIndex(s string) (idx int, ok bool) {
	if !IsValid(s) {
		return 0, false
	}
	y, m, d, _ := Parse(s)
	return utcDayIndex(y, m, d), true
}

// FromDayIndex formats a day index as a canonical date.
func FromDayIndex(idx int) string {
	return time.Unix(int64(idx)*secondsPerDay, 0).UTC().Format(Layout)
}

// Today returns the calendar day of now in now's own location.
func Today(now time.Time) string {
	return now.Format(Layout)
}

// LastNDays returns the n dates ending at and including the day of now,
// oldest first. n <= 0 yields an empty slice.
func LastNDays(now time.Time, n int) []string {
	out := make([]string, 0, max(n, 0))
	todayIdx, ok := ToDayIndex(Today(now))
	if !ok {
		return out
	}
	for i := n - 1; i >= 0; i-- {
		out = append(out, FromDayIndex(todayIdx-i))
	}
	return out
}

// utcDayIndex lets time.Date normalize out-of-range components, so
// 2023-02-30 lands on March 2nd and fails the IsValid round trip.
func utcDayIndex(y, m, d int) int {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return int(t.Unix() / secondsPerDay)
}
