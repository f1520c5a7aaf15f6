package core

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultTimezone is the zone the dashboard computes "today" in.
const DefaultTimezone = "Asia/Kolkata"

// Period is a calendar month.
type Period struct {
	Year  int
	Month int // 1-12
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// ParsePeriod reads month and year strings, falling back to def for a blank
// value.
func ParsePeriod(month, year string, def Period) (Period, error) {
	p := def
	if month != "" {
		m, err := strconv.Atoi(month)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
		}
		p.Month = m
	}
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return Period{}, fmt.Errorf("%w: %q", ErrInvalidYear, year)
		}
		p.Year = y
	}
	return p, p.Validate()
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1900 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// String returns e.g. "March 2024".
func (p Period) String() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month), p.Year)
}

// Prev returns the previous month.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Years lists the n years ending with the year of now, newest first.
func Years(now time.Time, n int) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, now.Year()-i)
	}
	return out
}

// Month is a selector option.
type Month struct {
	Number int
	Name   string
}

// Months lists January to December.
func Months() []Month {
	out := make([]Month, 12)
	for i := range out {
		out[i] = Month{Number: i + 1, Name: time.Month(i + 1).String()}
	}
	return out
}

// SplitwiseFilter selects one friend's split transactions between two dates
// (YYYY-MM-DD, inclusive).
type SplitwiseFilter struct {
	Person string
	Start  string
	End    string
}

// Ready reports whether the filter names a person and a full date range.
func (f SplitwiseFilter) Ready() bool {
	return f.Person != "" && f.Start != "" && f.End != ""
}

func (f SplitwiseFilter) Validate() error {
	start, err := ParseDate(f.Start)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := ParseDate(f.End)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start.Time) {
		return fmt.Errorf("%w: end_date before start_date", ErrInvalidDate)
	}
	return nil
}

// DefaultSplitwiseWindow returns the default range: the first day of the
// month three months back, through today, both in loc.
func DefaultSplitwiseWindow(now time.Time, loc *time.Location) (start, end string) {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)
	first := time.Date(today.Year(), today.Month()-3, 1, 0, 0, 0, 0, loc)
	return first.Format(isoDate), today.Format(isoDate)
}

// LoadLocation resolves a timezone name, falling back to UTC when the
// zone database does not know it.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
