package readinglog

import (
	"testing"
	"time"
)

func TestParseRangeClosedInterval(t *testing.T) {
	interval, ok := ParseRange("[2025-06-01,2025-06-05]")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	wantStart := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, time.June, 5, 23, 59, 59, 0, time.UTC)
	if !interval.Start.Equal(wantStart) {
		t.Fatalf("unexpected start: %v", interval.Start)
	}
	if !interval.End.Equal(wantEnd) {
		t.Fatalf("unexpected end: %v", interval.End)
	}
}

func TestParseRangeOpenEndExcludesEndDate(t *testing.T) {
	interval, ok := ParseRange("[2025-06-01,2025-06-05)")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	wantEnd := time.Date(2025, time.June, 4, 23, 59, 59, 0, time.UTC)
	if !interval.End.Equal(wantEnd) {
		t.Fatalf("open end should land on the prior day, got %v", interval.End)
	}
}

func TestParseRangeSingleDay(t *testing.T) {
	interval, ok := ParseRange("[2025-06-03,2025-06-03]")
	if !ok {
		t.Fatalf("expected single-day range to parse")
	}
	if interval.Start.Day() != 3 || interval.End.Day() != 3 {
		t.Fatalf("unexpected interval: %+v", interval)
	}
	if !interval.End.After(interval.Start) {
		t.Fatalf("end instant should follow start instant within the day")
	}
}

func TestParseRangeCrossesMonthBoundary(t *testing.T) {
	interval, ok := ParseRange("[2025-05-30,2025-06-02]")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	if interval.Start.Month() != time.May || interval.End.Month() != time.June {
		t.Fatalf("unexpected months: %v to %v", interval.Start, interval.End)
	}
}

func TestParseRangeRejectsMalformedInput(t *testing.T) {
	malformed := []string{
		"",
		"2025-06-01,2025-06-05",
		"[2025-06-01,2025-06-05",
		"[2025-6-1,2025-6-5]",
		"[2025-06-01;2025-06-05]",
		"[not-a-date,2025-06-05]",
		"[2025-13-40,2025-13-41]",
	}
	for _, raw := range malformed {
		if _, ok := ParseRange(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestParseRangeRejectsInvertedInterval(t *testing.T) {
	if _, ok := ParseRange("[2025-06-05,2025-06-01]"); ok {
		t.Fatalf("expected inverted range to be rejected")
	}
}

func TestParseRangeRejectsEmptyAfterBoundaryCorrection(t *testing.T) {
	// The open end excludes the single covered day, leaving nothing.
	if _, ok := ParseRange("[2025-06-01,2025-06-01)"); ok {
		t.Fatalf("expected empty half-open range to be rejected")
	}
}

func TestMonthWindowCurrentMonth(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 30, 0, 0, time.UTC)
	first, last := MonthWindow(now, 0)
	if !first.Equal(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected window start: %v", first)
	}
	if last.Month() != time.June || last.Day() != 30 {
		t.Fatalf("unexpected window end: %v", last)
	}
	if !last.Before(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window end must precede the next month: %v", last)
	}
}

func TestMonthWindowOffsetCrossesYearBoundary(t *testing.T) {
	now := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	first, last := MonthWindow(now, 3)
	if first.Year() != 2024 || first.Month() != time.November {
		t.Fatalf("expected November 2024, got %v", first)
	}
	if last.Day() != 30 {
		t.Fatalf("November should end on the 30th, got %v", last)
	}
}

func TestMonthWindowAnchorsOnDayOne(t *testing.T) {
	// Shifting back from March 31 must not skid past February.
	now := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	first, _ := MonthWindow(now, 1)
	if first.Month() != time.February || first.Day() != 1 {
		t.Fatalf("expected February 1, got %v", first)
	}
}

func TestDaysInHandlesLeapFebruary(t *testing.T) {
	if got := daysIn(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)); got != 29 {
		t.Fatalf("expected 29 days in February 2024, got %d", got)
	}
	if got := daysIn(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)); got != 28 {
		t.Fatalf("expected 28 days in February 2025, got %d", got)
	}
}

func TestIntervalOverlapAndClip(t *testing.T) {
	windowStart := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, time.June, 30, 23, 59, 59, 999000000, time.UTC)

	interval, ok := ParseRange("[2025-05-30,2025-06-02]")
	if !ok {
		t.Fatalf("expected range to parse")
	}
	if !interval.overlaps(windowStart, windowEnd) {
		t.Fatalf("interval straddling the boundary should overlap the window")
	}
	clipped := interval.clip(windowStart, windowEnd)
	if !clipped.Start.Equal(windowStart) {
		t.Fatalf("clip should raise the start to the window, got %v", clipped.Start)
	}
	if clipped.End.Day() != 2 {
		t.Fatalf("clip should keep the in-window end, got %v", clipped.End)
	}

	before, _ := ParseRange("[2025-04-01,2025-04-05]")
	if before.overlaps(windowStart, windowEnd) {
		t.Fatalf("interval wholly before the window must not overlap")
	}
}

func TestIntervalFinishesWithin(t *testing.T) {
	windowStart := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, time.June, 30, 23, 59, 59, 999000000, time.UTC)

	inside, _ := ParseRange("[2025-05-30,2025-06-02]")
	if !inside.finishesWithin(windowStart, windowEnd) {
		t.Fatalf("interval ending June 2 completes in June")
	}

	after, _ := ParseRange("[2025-06-25,2025-07-02]")
	if after.finishesWithin(windowStart, windowEnd) {
		t.Fatalf("interval ending in July does not complete in June")
	}

	openIntoJuly, _ := ParseRange("[2025-06-25,2025-07-01)")
	if !openIntoJuly.finishesWithin(windowStart, windowEnd) {
		t.Fatalf("open end on July 1 corrects to June 30 and completes in June")
	}
}
