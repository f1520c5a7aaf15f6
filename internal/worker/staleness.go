package worker

import (
	"time"

	"finboard/internal/core"
)

// StalenessChecker decides whether a stored snapshot should be fetched
// again. A zero fetchedAt means the snapshot was never saved.
type StalenessChecker interface {
	IsDue(fetchedAt, now time.Time) bool
}

// MaxAgeChecker is due once the snapshot is MaxAge old.
type MaxAgeChecker struct {
	MaxAge time.Duration
}

func (c MaxAgeChecker) IsDue(fetchedAt, now time.Time) bool {
	if fetchedAt.IsZero() {
		return true
	}
	return now.Sub(fetchedAt) >= c.MaxAge
}

// DailyChecker is due once per calendar day in Location.
type DailyChecker struct {
	Location *time.Location
}

func (c DailyChecker) IsDue(fetchedAt, now time.Time) bool {
	if fetchedAt.IsZero() {
		return true
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return fetchedAt.In(loc).Format("2006-01-02") != now.In(loc).Format("2006-01-02")
}

// PeriodAge classifies a month relative to the current one.
type PeriodAge int

const (
	// PeriodOpen is the current month or a future one.
	PeriodOpen PeriodAge = iota
	// PeriodClosing is last month; late postings and card statements still
	// change it.
	PeriodClosing
	// PeriodSettled is anything older.
	PeriodSettled
)

// AgeOf classifies p against current.
func AgeOf(p, current core.Period) PeriodAge {
	diff := (current.Year*12 + current.Month) - (p.Year*12 + p.Month)
	switch {
	case diff <= 0:
		return PeriodOpen
	case diff == 1:
		return PeriodClosing
	default:
		return PeriodSettled
	}
}

// StalenessPolicy picks a checker per period age.
type StalenessPolicy map[PeriodAge]StalenessChecker

// settledMaxAge applies to ages the policy does not name.
const settledMaxAge = 7 * 24 * time.Hour

// DefaultStalenessPolicy refreshes the open month every interval, last
// month once a day and settled months once a week.
func DefaultStalenessPolicy(interval time.Duration, loc *time.Location) StalenessPolicy {
	return StalenessPolicy{
		PeriodOpen:    MaxAgeChecker{MaxAge: interval},
		PeriodClosing: DailyChecker{Location: loc},
		PeriodSettled: MaxAgeChecker{MaxAge: settledMaxAge},
	}
}

// Checker returns the checker for age.
func (p StalenessPolicy) Checker(age PeriodAge) StalenessChecker {
	if c, ok := p[age]; ok {
		return c
	}
	return MaxAgeChecker{MaxAge: settledMaxAge}
}
