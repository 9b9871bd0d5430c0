// utils/dates.go
package utils

import "time"

const DateLayout = "2006-01-02"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// TrailingWeek returns the inclusive [today-7d, today] window as calendar days.
func TrailingWeek(now time.Time) (start, end time.Time) {
	end = BeginningOfDay(now)
	start = end.AddDate(0, 0, -7)
	return start, end
}

// ParseDay parses a YYYY-MM-DD query value. ok is false for empty or malformed input.
func ParseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndOfDay is the last instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return BeginningOfDay(t).Add(24*time.Hour - time.Nanosecond)
}
