package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on every Assignment.
const DateLayout = "2006-01-02"

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t, in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

// String returns the "YYYY-MM" key.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first day of the month as "YYYY-MM-01".
func (m Month) Start() string {
	return m.String() + "-01"
}

// Index0 returns the zero-based month index (January is 0).
func (m Month) Index0() int {
	return int(m.Month) - 1
}

// Next returns the following month, wrapping December into January.
func (m Month) Next() Month {
	return m.Add(1)
}

// Add moves n months forward (or backward when n is negative).
func (m Month) Add(n int) Month {
	idx := m.Year*12 + m.Index0() + n
	y := idx / 12
	mi := idx % 12
	if mi < 0 {
		mi += 12
		y--
	}
	return Month{Year: y, Month: time.Month(mi + 1)}
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// First returns midnight on the first day of the month in loc.
func (m Month) First(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether the "YYYY-MM-DD" date falls inside m.
func (m Month) Contains(date string) bool {
	return strings.HasPrefix(date, m.String()+"-")
}

// ParseDate parses a "YYYY-MM-DD" date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// MonthOfDate returns the month a "YYYY-MM-DD" date belongs to.
func MonthOfDate(date string) (Month, error) {
	t, err := ParseDate(date, time.UTC)
	if err != nil {
		return Month{}, err
	}
	return MonthOf(t), nil
}
