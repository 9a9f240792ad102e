package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"meetdays/internal/days"
	appLog "meetdays/internal/log"
)

// maxSpanDays bounds how many days one multi-day all-day event contributes.
const maxSpanDays = 366

// Window limits which occurrences are imported. Zero From or Until leaves
// that side open, except that recurring events without their own end are
// capped at maxOccurrences. Location decides the calendar day of timed
// events and defaults to time.Local.
type Window struct {
	From     time.Time
	Until    time.Time
	Location *time.Location
}

func (w Window) contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

func (w Window) loc() *time.Location {
	if w.Location == nil {
		return time.Local
	}
	return w.Location
}

// ParseMeetDays returns the canonical dates on which any event in body
// occurs. Events that cannot be read are logged and skipped.
func ParseMeetDays(body []byte, w Window) ([]string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var out []string
	for _, ve := range cal.Events() {
		got, err := eventDays(ve, w)
		if err != nil {
			appLog.Warn("skipping unreadable VEVENT", "uid", propValue(ve, ical.ComponentPropertyUniqueId), "err", err)
			continue
		}
		out = append(out, got...)
	}
	return days.Normalize(out), nil
}

func eventDays(ve *ical.VEvent, w Window) ([]string, error) {
	allDay := isAllDay(ve.GetProperty(ical.ComponentPropertyDtStart))

	var (
		start time.Time
		err   error
	)
	if allDay {
		start, err = ve.GetAllDayStartAt()
	} else {
		start, err = ve.GetStartAt()
	}
	if err != nil {
		return nil, err
	}
	if allDay {
		// Floating date: pin it to midnight in the window's location.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, w.loc())
	}

	if rule := propValue(ve, ical.ComponentPropertyRrule); rule != "" {
		var exdates []time.Time
		for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
			for _, part := range strings.Split(p.Value, ",") {
				if t, err := parseICSTime(part, start.Location()); err == nil {
					exdates = append(exdates, t)
				}
			}
		}
		occ, err := expand(rule, start, exdates, w)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(occ))
		for _, t := range occ {
			out = append(out, dayOf(t, allDay, w))
		}
		return out, nil
	}

	if !w.contains(start) {
		return nil, nil
	}
	if !allDay {
		return []string{dayOf(start, false, w)}, nil
	}

	// DTEND on an all-day event is exclusive.
	out := []string{dayOf(start, true, w)}
	if end, err := ve.GetAllDayEndAt(); err == nil {
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, w.loc())
		for d := start.AddDate(0, 0, 1); d.Before(end) && len(out) < maxSpanDays; d = d.AddDate(0, 0, 1) {
			if w.contains(d) {
				out = append(out, dayOf(d, true, w))
			}
		}
	}
	return out, nil
}

// dayOf maps an occurrence onto a calendar day. All-day values keep their
// own date; timed values are read in the window's location.
func dayOf(t time.Time, allDay bool, w Window) string {
	if allDay {
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	}
	return t.In(w.loc()).Format(days.Layout)
}

func isAllDay(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// parseICSTime parses the basic DATE / DATE-TIME forms used by EXDATE.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
