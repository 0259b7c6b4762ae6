package readinglog

import (
	"regexp"
	"strings"
	"time"
)

// Stored ranges use mathematical interval notation, e.g. "[2025-06-01,2025-06-05)".
// The end boundary character decides whether the end date itself counts.
var rangePattern = regexp.MustCompile(`^([\[(])(\d{4}-\d{2}-\d{2}),(\d{4}-\d{2}-\d{2})([\])])$`)

const rangeDateLayout = "2006-01-02"

// Interval is a reading span normalized to calendar-day granularity: the
// start instant is 00:00:00 on the start date and the end instant is 23:59:59
// on the (boundary-corrected) end date, both UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// ParseRange parses one stored range string. Malformed strings and ranges that
// are empty after boundary correction report ok=false and are skipped by the
// aggregation pipeline rather than surfacing as errors.
func ParseRange(raw string) (Interval, bool) {
	match := rangePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return Interval{}, false
	}

	startDate, err := time.Parse(rangeDateLayout, match[2])
	if err != nil {
		return Interval{}, false
	}
	endDate, err := time.Parse(rangeDateLayout, match[3])
	if err != nil {
		return Interval{}, false
	}

	if match[4] == ")" {
		// Half-open interval: the end date itself is excluded.
		endDate = endDate.AddDate(0, 0, -1)
	}

	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, time.UTC)
	if start.After(end) {
		return Interval{}, false
	}

	return Interval{Start: start, End: end}, true
}

// MonthWindow computes the first instant and the last instant of the calendar
// month monthOffset months before the month containing now. Offset zero means
// the current month. Arithmetic is calendar-based: the window is anchored on
// day one before shifting months, so month-length variation never drifts the
// boundary.
func MonthWindow(now time.Time, monthOffset int) (time.Time, time.Time) {
	year, month, _ := now.UTC().Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -monthOffset, 0)
	last := first.AddDate(0, 1, 0).Add(-time.Millisecond)
	return first, last
}

// daysIn returns the number of calendar days covered by the window starting
// at first (the first instant of a month).
func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}

// overlaps reports whether the interval touches the [windowStart, windowEnd]
// span at all.
func (iv Interval) overlaps(windowStart, windowEnd time.Time) bool {
	return !iv.Start.After(windowEnd) && !iv.End.Before(windowStart)
}

// clip bounds the interval to the window. Callers must check overlaps first.
func (iv Interval) clip(windowStart, windowEnd time.Time) Interval {
	clipped := iv
	if clipped.Start.Before(windowStart) {
		clipped.Start = windowStart
	}
	if clipped.End.After(windowEnd) {
		clipped.End = windowEnd
	}
	return clipped
}

// finishesWithin reports whether the corrected end instant lands inside the
// window, which is what marks a fic as completed that month.
func (iv Interval) finishesWithin(windowStart, windowEnd time.Time) bool {
	return !iv.End.Before(windowStart) && !iv.End.After(windowEnd)
}
