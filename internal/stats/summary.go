package stats

import (
	"meetdays/internal/days"
)

// recentWindow is the number of days shown in Summary.Recent.
const recentWindow = 30

// Day is one entry of the recent-days strip.
type Day struct {
	Date string `json:"date"`
	Met  bool   `json:"met"`
}

// Summary bundles the figures a presentation layer usually shows together.
type Summary struct {
	Today         string  `json:"today"`
	Total         int     `json:"total"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	Last30        float64 `json:"last_30"`
	Last365       float64 `json:"last_365"`
	Year          int     `json:"year"`
	YearRatio     float64 `json:"year_ratio"`
	Month         int     `json:"month"`
	MonthRatio    float64 `json:"month_ratio"`
	Years         []int   `json:"years"`
	Recent        []Day   `json:"recent"`
}

// Summarize computes a Summary for the year and month containing today.
func (e *Engine) Summarize(dates []string) Summary {
	normalized := days.Normalize(dates)
	now := e.now()
	today := days.Today(now)
	y, m, _, _ := days.Parse(today)

	set := days.NewSet(normalized)
	window := days.LastNDays(now, recentWindow)
	recent := make([]Day, 0, len(window))
	for _, d := range window {
		recent = append(recent, Day{Date: d, Met: set.Has(d)})
	}

	return Summary{
		Today:         today,
		Total:         e.TotalMeetDurationDays(normalized),
		CurrentStreak: e.CurrentStreak(normalized),
		LongestStreak: e.LongestStreak(normalized),
		Last30:        e.RatioLast30(normalized),
		Last365:       e.RatioLast365(normalized),
		Year:          y,
		YearRatio:     e.RatioYear(normalized, y),
		Month:         m,
		MonthRatio:    e.RatioMonth(normalized, y, m),
		Years:         e.ExtractYears(normalized),
		Recent:        recent,
	}
}
