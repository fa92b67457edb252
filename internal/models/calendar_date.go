package models

import (
	"fmt"
	"time"
)

// CalendarDate is a timezone-free day. Year/Month/Day are the bucketing keys
// for aggregates, ISO() is what the ledger stores.
type CalendarDate struct {
	Year  int
	Month int
	Day   int
}

func NewCalendarDate(t time.Time) CalendarDate {
	return CalendarDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// ParseISODate reads the "2006-01-02" form the ledger stores.
func ParseISODate(s string) (CalendarDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewCalendarDate(t), nil
}

func (d CalendarDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether the date exists on the calendar (31.02 does not).
func (d CalendarDate) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return false
	}
	t := d.Time()
	return t.Year() == d.Year && int(t.Month()) == d.Month && t.Day() == d.Day
}

func (d CalendarDate) YearKey() string  { return fmt.Sprintf("%04d", d.Year) }
func (d CalendarDate) MonthKey() string { return fmt.Sprintf("%04d-%02d", d.Year, d.Month) }
func (d CalendarDate) DayKey() string   { return d.ISO() }
