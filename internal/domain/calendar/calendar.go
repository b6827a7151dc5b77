// Package calendar expands months into meeting slots and answers the week
// and month questions the scheduler asks about "now".
package calendar

import (
	"time"

	"github.com/okian/starboard/internal/domain/model"
)

// Slot is a meeting occurrence produced by expanding a month.
type Slot struct {
	Date string
	Type model.MeetingType
}

// Key matches model.Assignment.Key.
func (s Slot) Key() string {
	return model.SlotKey(s.Date, s.Type)
}

// Placeholder returns an unassigned Assignment for the slot.
func (s Slot) Placeholder() model.Assignment {
	return model.Assignment{Date: s.Date, Type: s.Type}
}

// Expand lists every Friday and Sunday of the month in ascending date
// order. monthIndex0 is zero-based (January is 0).
func Expand(year, monthIndex0 int) []Slot {
	first := time.Date(year, time.Month(monthIndex0+1), 1, 0, 0, 0, 0, time.UTC)
	slots := make([]Slot, 0, 10)
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Friday:
			slots = append(slots, Slot{Date: d.Format(model.DateLayout), Type: model.Friday})
		case time.Sunday:
			slots = append(slots, Slot{Date: d.Format(model.DateLayout), Type: model.Sunday})
		}
	}
	return slots
}

// ExpandMonth is Expand for a model.Month.
func ExpandMonth(m model.Month) []Slot {
	return Expand(m.Year, m.Index0())
}

// WeekStart returns midnight of the Sunday that begins t's week.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// IsFutureWeek reports whether date lies in a week that starts strictly
// after the week containing now. Dates are read in now's location;
// unparsable dates are never in the future.
func IsFutureWeek(date string, now time.Time) bool {
	d, err := model.ParseDate(date, now.Location())
	if err != nil {
		return false
	}
	return WeekStart(d).After(WeekStart(now))
}

// WeekEnd returns midnight of the first Sunday on or after date.
func WeekEnd(date string, loc *time.Location) (time.Time, error) {
	d, err := model.ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.AddDate(0, 0, (7-int(d.Weekday()))%7), nil
}

// WeekEnded reports whether the week holding date has finished by now.
func WeekEnded(date string, now time.Time) bool {
	end, err := WeekEnd(date, now.Location())
	if err != nil {
		return false
	}
	return !end.After(now)
}

// IsPastMonth reports whether m ended before the month containing now.
func IsPastMonth(m model.Month, now time.Time) bool {
	return m.Before(model.MonthOf(now))
}

// IsSecondToLastDay reports whether now falls on the penultimate day of
// its month.
func IsSecondToLastDay(now time.Time) bool {
	return now.Day() == model.MonthOf(now).Days()-1
}
