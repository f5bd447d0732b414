package core

import (
	"fmt"
	"time"
)

// InputDateLayout is the only date format accepted from users.
const InputDateLayout = "02.01.2006"

// isoDateLayout is the format used for store queries and filenames.
const isoDateLayout = "2006-01-02"

// Day is a calendar date with no time-of-day component.
type Day struct {
	time.Time
}

// NewDay creates a Day from year, month and day of month.
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar date in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	lt := t.In(loc)
	return NewDay(lt.Year(), lt.Month(), lt.Day())
}

// ParseDay parses user input in DD.MM.YYYY form. Any other format is
// ErrBadDate.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(InputDateLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return Day{Time: t}, nil
}

// ParseISODay parses a YYYY-MM-DD date, the form used in queue messages.
func ParseISODay(s string) (Day, error) {
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return Day{Time: t}, nil
}

// ISO returns the date as YYYY-MM-DD.
func (d Day) ISO() string {
	return d.Format(isoDateLayout)
}

// Input returns the date as DD.MM.YYYY, the form shown to users.
func (d Day) Input() string {
	return d.Format(InputDateLayout)
}

// AddDays returns the date shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day{Time: d.AddDate(0, 0, n)}
}

// MonthBounds returns the first and last day of the given calendar month.
// December rolls over into January of the following year.
func MonthBounds(year int, month time.Month) (Day, Day) {
	first := NewDay(year, month, 1)
	var nextFirst Day
	if month == time.December {
		nextFirst = NewDay(year+1, time.January, 1)
	} else {
		nextFirst = NewDay(year, month+1, 1)
	}
	return first, nextFirst.AddDays(-1)
}

// MonthsBack returns the first day of the month n months before the given
// one, used by the month picker; year boundaries are handled explicitly.
func MonthsBack(year int, month time.Month, n int) (int, time.Month) {
	y, m := year, int(month)-n
	for m <= 0 {
		y--
		m += 12
	}
	return y, time.Month(m)
}

// Range is an inclusive calendar-date interval.
type Range struct {
	Start Day
	End   Day
}

// NewRange validates that start is not after end.
func NewRange(start, end Day) (Range, error) {
	if start.After(end.Time) {
		return Range{}, fmt.Errorf("%w: %s > %s", ErrBadRange, start.ISO(), end.ISO())
	}
	return Range{Start: start, End: end}, nil
}

// LastDays returns the range covering the n days up to today in loc,
// today included.
func LastDays(now time.Time, loc *time.Location, n int) Range {
	end := DayOf(now, loc)
	return Range{Start: end.AddDays(-n), End: end}
}

// Filename returns the artifact filename for the range,
// expenses_<start>_to_<end>.xlsx.
func (r Range) Filename() string {
	return fmt.Sprintf("expenses_%s_to_%s.xlsx", r.Start.ISO(), r.End.ISO())
}

// Caption returns the human-readable date range for the artifact caption.
func (r Range) Caption() string {
	return r.Start.Input() + " - " + r.End.Input()
}
