package core

import (
	"fmt"
	"time"
)

// Window is one of the three rolling export/statistics periods. Each
// window has a start boundary derived from a fixed "now" and no end
// boundary.
type Window string

const (
	Today     Window = "today"
	ThisWeek  Window = "thisWeek"
	ThisMonth Window = "thisMonth"
)

// AllWindows lists the windows in refinement order (narrowest first).
func AllWindows() []Window {
	return []Window{Today, ThisWeek, ThisMonth}
}

// ParseWindow maps a request string onto a Window.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case Today, ThisWeek, ThisMonth:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Each boundary function reads only its own copy of now. Deriving one
// boundary from another corrupts month starts when the week start
// crosses a month boundary.

// DayStart returns local midnight of now's calendar date.
func DayStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// WeekStart returns local midnight of the most recent Sunday on or
// before now.
func WeekStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()-int(now.Weekday()), 0, 0, 0, 0, now.Location())
}

// MonthStart returns local midnight of the first day of now's month.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Start returns the window's start boundary for the given now.
func (w Window) Start(now time.Time) time.Time {
	switch w {
	case ThisWeek:
		return WeekStart(now)
	case ThisMonth:
		return MonthStart(now)
	default:
		return DayStart(now)
	}
}

// Contains reports whether t falls inside the window anchored at now.
// A t exactly on the boundary is included.
func (w Window) Contains(now, t time.Time) bool {
	return !t.Before(w.Start(now))
}

// Label returns the user-facing French period label used in reports.
func (w Window) Label() string {
	switch w {
	case ThisWeek:
		return "Cette semaine"
	case ThisMonth:
		return "Ce mois"
	default:
		return "Aujourd'hui"
	}
}
