package report

import (
	"math"
	"time"
)

// WeekStart returns the most recent Monday 00:00:00 at or before t, in t's
// own location.
func WeekStart(t time.Time) time.Time {
	diff := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -diff)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// MonthStart returns the first day of t's month at 00:00:00, in t's own
// location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Round2 rounds to two decimals, half away from zero. Idempotent.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
