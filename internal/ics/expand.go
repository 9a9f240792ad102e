package ics

import (
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"meetdays/internal/days"
	appLog "meetdays/internal/log"
)

// maxOccurrences caps expansion of open-ended rules.
const maxOccurrences = 5000

// expand returns the occurrences of rule starting at dtstart, minus
// exdates, inside w.
func expand(rule string, dtstart time.Time, exdates []time.Time, w Window) ([]time.Time, error) {
	r, err := rrule.StrToRRule(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil {
		return nil, err
	}
	r.DTStart(dtstart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exdates {
		set.ExDate(ex.In(dtstart.Location()))
	}

	if !w.Until.IsZero() {
		from := w.From
		if from.IsZero() {
			from = dtstart
		}
		occ := set.Between(from.In(dtstart.Location()), w.Until.In(dtstart.Location()), true)
		if len(occ) > maxOccurrences {
			appLog.Warn("recurrence truncated", "rrule", rule, "cap", maxOccurrences)
			occ = occ[:maxOccurrences]
		}
		return occ, nil
	}

	next := set.Iterator()
	var out []time.Time
	for len(out) < maxOccurrences {
		t, ok := next()
		if !ok {
			return out, nil
		}
		if w.contains(t) {
			out = append(out, t)
		}
	}
	appLog.Warn("recurrence truncated", "rrule", rule, "cap", maxOccurrences)
	return out, nil
}

// ExpandRule lists the dates produced by an RRULE (with or without the
// "RRULE:" prefix) starting on from and ending no later than until. Both
// bounds are canonical dates and inclusive.
func ExpandRule(rule, from, until string) ([]string, error) {
	fy, fm, fd, ok := days.Parse(from)
	if !ok || !days.IsValid(from) {
		return nil, errors.New("invalid from date " + from)
	}
	uy, um, ud, ok := days.Parse(until)
	if !ok || !days.IsValid(until) {
		return nil, errors.New("invalid until date " + until)
	}
	start := time.Date(fy, time.Month(fm), fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(uy, time.Month(um), ud, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return nil, errors.New("until is before from")
	}

	occ, err := expand(rule, start, nil, Window{From: start, Until: end, Location: time.UTC})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(occ))
	for _, t := range occ {
		out = append(out, t.UTC().Format(days.Layout))
	}
	return days.Normalize(out), nil
}
