// Package stats derives ratios and streaks from a collection of meet days.
//
// Every function accepts unvalidated input and normalizes it first. Nothing
// here returns an error: degenerate input (an invalid start date, a clock
// that cannot be turned into a day index) yields 0 or an empty slice.
package stats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"meetdays/internal/days"
)

// Engine computes statistics relative to the day reported by Now.
type Engine struct {
	Now func() time.Time
}

// New returns an Engine using now as its clock. A nil now uses time.Now.
func New(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{Now: now}
}

func (e *Engine) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) today() string {
	return days.Today(e.now())
}

// RatioSince returns the share of days in [start, today] that are meet days.
func (e *Engine) RatioSince(dates []string, start string) float64 {
	startIdx, ok := days.ToDayIndex(start)
	if !ok {
		return 0
	}
	todayIdx, ok := days.ToDayIndex(e.today())
	if !ok || startIdx > todayIdx {
		return 0
	}
	span := todayIdx - startIdx + 1
	return float64(countBetween(days.NewSet(dates), startIdx, todayIdx)) / float64(span)
}

// RatioLastN returns the share of the last n days (today included) that are
// meet days.
func (e *Engine) RatioLastN(dates []string, n int) float64 {
	if n <= 0 {
		return 0
	}
	todayIdx, ok := days.ToDayIndex(e.today())
	if !ok {
		return 0
	}
	return float64(countBetween(days.NewSet(dates), todayIdx-(n-1), todayIdx)) / float64(n)
}

// RatioLast30 is RatioLastN over 30 days.
func (e *Engine) RatioLast30(dates []string) float64 { return e.RatioLastN(dates, 30) }

// RatioLast365 is RatioLastN over 365 days.
func (e *Engine) RatioLast365(dates []string) float64 { return e.RatioLastN(dates, 365) }

// RatioYear divides the meet days in year by the length of that year.
func (e *Engine) RatioYear(dates []string, year int) float64 {
	total := 365
	if IsLeap(year) {
		total = 366
	}
	return float64(countPrefix(days.NewSet(dates), strconv.Itoa(year)+"-")) / float64(total)
}

// RatioMonth divides the meet days in year/month by the month length.
// Months outside 1..12 match nothing and yield 0.
func (e *Engine) RatioMonth(dates []string, year, month int) float64 {
	prefix := fmt.Sprintf("%d-%02d-", year, month)
	return float64(countPrefix(days.NewSet(dates), prefix)) / float64(DaysInMonth(year, month))
}

// ExtractYears returns the distinct years present, newest first.
func (e *Engine) ExtractYears(dates []string) []int {
	seen := make(map[int]struct{})
	for d := range days.NewSet(dates) {
		y, _, _, _ := days.Parse(d)
		seen[y] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// CurrentStreak counts consecutive meet days ending today. It is 0 when
// today itself is not a meet day.
func (e *Engine) CurrentStreak(dates []string) int {
	set := days.NewSet(dates)
	today := e.today()
	if !set.Has(today) {
		return 0
	}
	idx, ok := days.ToDayIndex(today)
	if !ok {
		return 0
	}
	streak := 0
	for set.Has(days.FromDayIndex(idx)) {
		streak++
		idx--
	}
	return streak
}

// LongestStreak returns the longest run of consecutive meet days.
func (e *Engine) LongestStreak(dates []string) int {
	sorted := days.Normalize(dates)
	if len(sorted) == 0 {
		return 0
	}

	best, cur := 1, 1
	prev, _ := days.ToDayIndex(sorted[0])
	for _, d := range sorted[1:] {
		idx, _ := days.ToDayIndex(d)
		if idx == prev+1 {
			cur++
			best = max(best, cur)
		} else {
			cur = 1
		}
		prev = idx
	}
	return best
}

// TotalMeetDurationDays returns the number of distinct meet days recorded.
// Despite the name it is a count, not an elapsed span.
func (e *Engine) TotalMeetDurationDays(dates []string) int {
	return len(days.NewSet(dates))
}

// IsLeap applies the Gregorian leap-year rule.
func IsLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the length of month in year. Out-of-range months are
// normalized the way time.Date does it (month 13 is January of year+1).
func DaysInMonth(year, month int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func countBetween(set days.Set, fromIdx, toIdx int) int {
	n := 0
	for d := range set {
		idx, ok := days.ToDayIndex(d)
		if ok && idx >= fromIdx && idx <= toIdx {
			n++
		}
	}
	return n
}

func countPrefix(set days.Set, prefix string) int {
	n := 0
	for d := range set {
		if strings.HasPrefix(d, prefix) {
			n++
		}
	}
	return n
}
