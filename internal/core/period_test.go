package core

import (
	"testing"
	"time"
)

func TestWindowStarts(t *testing.T) {
	// Wednesday 2025-06-04 15:30 local.
	now := time.Date(2025, 6, 4, 15, 30, 0, 0, time.Local)

	if got := DayStart(now); !got.Equal(time.Date(2025, 6, 4, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("day start = %v", got)
	}
	if got := WeekStart(now); !got.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("week start = %v", got)
	}
	if got := MonthStart(now); !got.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("month start = %v", got)
	}
}

func TestWeekStartCrossesMonthBoundary(t *testing.T) {
	// Tuesday 2025-07-01: week started Sunday June 29. The month start
	// must stay July 1 regardless.
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.Local)

	if got := WeekStart(now); !got.Equal(time.Date(2025, 6, 29, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("week start = %v, want June 29", got)
	}
	if got := MonthStart(now); !got.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("month start = %v, want July 1", got)
	}
}

func TestWeekStartOnSunday(t *testing.T) {
	now := time.Date(2025, 6, 8, 23, 59, 0, 0, time.Local) // a Sunday
	if got := WeekStart(now); !got.Equal(time.Date(2025, 6, 8, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("week start = %v, want same Sunday", got)
	}
}

func TestWindowContainsBoundaryInclusive(t *testing.T) {
	now := time.Date(2025, 6, 4, 15, 30, 0, 0, time.Local)
	boundary := DayStart(now)
	if !Today.Contains(now, boundary) {
		t.Fatalf("boundary instant must be included")
	}
	if Today.Contains(now, boundary.Add(-time.Nanosecond)) {
		t.Fatalf("instant before boundary must be excluded")
	}
}

func TestWindowRefinement(t *testing.T) {
	// Membership in today implies membership in thisWeek and thisMonth.
	now := time.Date(2025, 6, 4, 15, 30, 0, 0, time.Local)
	instants := []time.Time{
		now,
		DayStart(now),
		WeekStart(now),
		MonthStart(now),
		now.AddDate(0, 0, -2),
		now.AddDate(0, -1, 0),
	}
	for _, ts := range instants {
		if Today.Contains(now, ts) && !ThisWeek.Contains(now, ts) {
			t.Fatalf("%v in today but not thisWeek", ts)
		}
		if ThisWeek.Contains(now, ts) && !ThisMonth.Contains(now, ts) {
			t.Fatalf("%v in thisWeek but not thisMonth", ts)
		}
	}
}

func TestParseWindow(t *testing.T) {
	for _, w := range AllWindows() {
		got, err := ParseWindow(string(w))
		if err != nil || got != w {
			t.Fatalf("ParseWindow(%q) = %v, %v", w, got, err)
		}
	}
	if _, err := ParseWindow("lastYear"); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}
