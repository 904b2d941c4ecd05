package domain

import (
	"fmt"
	"time"
)

// PeriodUnit is the time unit used when bucketing usage into periods.
type PeriodUnit string

const (
	PeriodDay   PeriodUnit = "day"
	PeriodWeek  PeriodUnit = "week"
	PeriodMonth PeriodUnit = "month"
)

// ParsePeriodUnit converts a string into a PeriodUnit.
func ParsePeriodUnit(s string) (PeriodUnit, error) {
	p := PeriodUnit(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown period unit %q", s)
	}
	return p, nil
}

// IsValid checks if the period unit is a known value.
func (p PeriodUnit) IsValid() bool {
	return p == PeriodDay || p == PeriodWeek || p == PeriodMonth
}

// String returns the string representation of PeriodUnit.
func (p PeriodUnit) String() string {
	return string(p)
}

// CurrentStart returns the start of the period containing now:
//   - day: today 00:00
//   - week: Monday of this week 00:00
//   - month: first day of this month 00:00
func (p PeriodUnit) CurrentStart(now time.Time) time.Time {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch p {
	case PeriodWeek:
		// time.Weekday counts from Sunday; shift so Monday is 0.
		offset := (int(start.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -offset)
	case PeriodMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	}
	return start
}

// End returns the last second of the period beginning at start.
func (p PeriodUnit) End(start time.Time) time.Time {
	return p.next(start).Add(-time.Second)
}

// PreviousStart returns the start of the period preceding the one beginning at start.
func (p PeriodUnit) PreviousStart(start time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return start.AddDate(0, 0, -7)
	case PeriodMonth:
		return start.AddDate(0, -1, 0)
	default:
		return start.AddDate(0, 0, -1)
	}
}

// Duration returns the nominal length of the period (a month counts as 30 days).
func (p PeriodUnit) Duration() time.Duration {
	day := 24 * time.Hour
	switch p {
	case PeriodWeek:
		return 7 * day
	case PeriodMonth:
		return 30 * day
	default:
		return day
	}
}

func (p PeriodUnit) next(start time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}
