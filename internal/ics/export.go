// Package ics moves meet days in and out of iCalendar. Export writes one
// all-day VEVENT per date; import reads any calendar and turns its events,
// recurring ones included, into canonical dates.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"meetdays/internal/days"
)

const (
	DefaultSummary = "Meet day"
	DefaultProdID  = "-//meetdays//meetdays//EN"

	uidSuffix = "@meetdays"
)

// ExportOptions tweaks the generated calendar. Now stamps DTSTAMP and
// defaults to time.Now.
type ExportOptions struct {
	Summary string
	ProdID  string
	Now     time.Time
}

// Export renders dates as a VCALENDAR. Invalid dates are dropped and the
// rest are emitted in ascending order, so the output is stable for a given
// set and Now.
func Export(dates []string, opts ExportOptions) ([]byte, error) {
	if opts.Summary == "" {
		opts.Summary = DefaultSummary
	}
	if opts.ProdID == "" {
		opts.ProdID = DefaultProdID
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProdID)
	cal.SetMethod(ical.MethodPublish)

	for _, d := range days.Normalize(dates) {
		y, m, dd, _ := days.Parse(d)
		start := time.Date(y, time.Month(m), dd, 0, 0, 0, 0, time.UTC)

		ev := cal.AddEvent(d + uidSuffix)
		ev.SetDtStampTime(opts.Now.UTC())
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		ev.SetSummary(opts.Summary)
	}

	return []byte(cal.Serialize()), nil
}
