package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedEngine(day string) *Engine {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" 10:00", time.Local)
	if err != nil {
		panic(err)
	}
	return New(func() time.Time { return t })
}

func TestCurrentStreak(t *testing.T) {
	e := fixedEngine("2024-03-10")

	assert.Equal(t, 3, e.CurrentStreak([]string{"2024-03-10", "2024-03-09", "2024-03-08"}))
	assert.Equal(t, 0, e.CurrentStreak([]string{"2024-03-09"}))
	assert.Equal(t, 2, e.CurrentStreak([]string{"2024-03-10", "2024-03-09", "2024-03-07", "2024-03-06"}))
	assert.Equal(t, 1, e.CurrentStreak([]string{"2024-03-10", "bad", "2024-03-10"}))
	assert.Equal(t, 0, e.CurrentStreak(nil))
}

func TestCurrentStreakAcrossMonthAndLeapDay(t *testing.T) {
	e := fixedEngine("2024-03-01")
	assert.Equal(t, 3, e.CurrentStreak([]string{"2024-02-28", "2024-02-29", "2024-03-01"}))
}

func TestLongestStreak(t *testing.T) {
	e := fixedEngine("2024-03-10")

	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"only invalid", []string{"2023-02-30"}, 0},
		{"single", []string{"2024-01-01"}, 1},
		{"gap", []string{"2024-01-01", "2024-01-02", "2024-01-04"}, 2},
		{"unsorted with dupes", []string{"2024-01-05", "2024-01-03", "2024-01-04", "2024-01-04", "2024-01-01"}, 3},
		{"across year", []string{"2023-12-30", "2023-12-31", "2024-01-01", "2024-01-03"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.LongestStreak(tt.dates))
		})
	}
}

func TestRatioLastN(t *testing.T) {
	e := fixedEngine("2024-03-10")

	assert.Equal(t, 0.0, e.RatioLastN(nil, 30))
	assert.Equal(t, 0.0, e.RatioLastN([]string{"2024-03-10"}, 0))
	assert.Equal(t, 1.0, e.RatioLastN([]string{"2024-03-10"}, 1))
	assert.InDelta(t, 2.0/30, e.RatioLast30([]string{"2024-03-10", "2024-02-10", "2024-02-09", "2024-03-11"}), 1e-9)

	// Every day of the window plus days outside it.
	var all []string
	for d := 0; d < 400; d++ {
		all = append(all, time.Date(2024, 3, 10-d, 0, 0, 0, 0, time.UTC).Format("2006-01-02"))
	}
	assert.Equal(t, 1.0, e.RatioLast365(all))
	for _, n := range []int{1, 7, 30, 365, 1000} {
		r := e.RatioLastN(all, n)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func TestRatioSince(t *testing.T) {
	e := fixedEngine("2024-03-10")
	dates := []string{"2024-03-01", "2024-03-05", "2024-03-10", "2024-02-01"}

	assert.InDelta(t, 3.0/10, e.RatioSince(dates, "2024-03-01"), 1e-9)
	assert.Equal(t, 1.0, e.RatioSince(dates, "2024-03-10"))
	assert.Equal(t, 0.0, e.RatioSince(dates, "2024-03-11"))
	assert.Equal(t, 0.0, e.RatioSince(dates, "2024-02-30"))
	assert.Equal(t, 0.0, e.RatioSince(dates, ""))
}

func TestRatioYear(t *testing.T) {
	e := fixedEngine("2024-03-10")
	dates := []string{"2024-01-01", "2024-06-30", "2023-01-01", "20240-01-01"}

	assert.InDelta(t, 2.0/366, e.RatioYear(dates, 2024), 1e-9)
	assert.InDelta(t, 1.0/365, e.RatioYear(dates, 2023), 1e-9)
	assert.Equal(t, 0.0, e.RatioYear(dates, 1999))
}

func TestRatioMonth(t *testing.T) {
	e := fixedEngine("2024-03-10")
	dates := []string{"2024-02-01", "2024-02-29", "2023-02-01", "2024-03-01"}

	assert.InDelta(t, 2.0/29, e.RatioMonth(dates, 2024, 2), 1e-9)
	assert.InDelta(t, 1.0/28, e.RatioMonth(dates, 2023, 2), 1e-9)
	assert.InDelta(t, 1.0/31, e.RatioMonth(dates, 2024, 3), 1e-9)
	assert.Equal(t, 0.0, e.RatioMonth(dates, 2024, 13))
	assert.Equal(t, 0.0, e.RatioMonth(dates, 2024, 0))
}

func TestDaysInMonthAndLeap(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, 2))
	assert.Equal(t, 28, DaysInMonth(2023, 2))
	assert.Equal(t, 28, DaysInMonth(1900, 2))
	assert.Equal(t, 29, DaysInMonth(2000, 2))
	assert.Equal(t, 30, DaysInMonth(2024, 4))
	assert.Equal(t, 31, DaysInMonth(2024, 12))

	assert.True(t, IsLeap(2024))
	assert.True(t, IsLeap(2000))
	assert.False(t, IsLeap(1900))
	assert.False(t, IsLeap(2023))
}

func TestExtractYears(t *testing.T) {
	e := fixedEngine("2024-03-10")
	got := e.ExtractYears([]string{"2022-05-01", "2024-01-01", "2022-01-01", "bad", "2023-12-31"})
	assert.Equal(t, []int{2024, 2023, 2022}, got)
	assert.Empty(t, e.ExtractYears(nil))
}

func TestTotalMeetDurationDaysIsACount(t *testing.T) {
	e := fixedEngine("2024-03-10")
	assert.Equal(t, 2, e.TotalMeetDurationDays([]string{"2020-01-01", "2024-01-01", "2024-01-01", "nope"}))
	assert.Equal(t, 0, e.TotalMeetDurationDays(nil))
}

func TestSummarize(t *testing.T) {
	e := fixedEngine("2024-03-10")
	s := e.Summarize([]string{"2024-03-10", "2024-03-09", "2024-01-01", "2023-07-01"})

	assert.Equal(t, "2024-03-10", s.Today)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 2024, s.Year)
	assert.Equal(t, 3, s.Month)
	assert.InDelta(t, 2.0/31, s.MonthRatio, 1e-9)
	assert.Equal(t, []int{2024, 2023}, s.Years)
	if assert.Len(t, s.Recent, 30) {
		assert.Equal(t, Day{Date: "2024-03-10", Met: true}, s.Recent[29])
		assert.Equal(t, Day{Date: "2024-03-08", Met: false}, s.Recent[27])
	}
}
