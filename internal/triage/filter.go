package triage

import (
	"strings"
	"time"

	"triagedesk/internal/model"
	"triagedesk/internal/timex"
)

// Window selects a received-at time filter. Today/yesterday/month/year use
// calendar-component comparison in the viewer's local timezone; week is a
// rolling 7x24h window from now, not an ISO calendar week.
type Window string

const (
	WindowAll       Window = "all"
	WindowToday     Window = "today"
	WindowYesterday Window = "yesterday"
	WindowWeek      Window = "week"
	WindowMonth     Window = "month"
	WindowYear      Window = "year"
)

// Windows lists the cycle order used by the dashboard's filter key.
var Windows = []Window{WindowAll, WindowToday, WindowYesterday, WindowWeek, WindowMonth, WindowYear}

// Filter returns the emails in bucket that fall inside the window AND match
// the free-text term. The term matches case-insensitively against student
// name, student id and subject; absent fields are simply empty. An empty
// result is a valid result.
func Filter(bucket []model.Email, window Window, term string, now time.Time) []model.Email {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.Email, 0, len(bucket))
	for _, e := range bucket {
		if !inWindow(e.ReceivedAt, window, now) {
			continue
		}
		if term != "" && !matchesTerm(e, term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesTerm(e model.Email, term string) bool {
	return strings.Contains(strings.ToLower(e.StudentName), term) ||
		strings.Contains(strings.ToLower(e.StudentID), term) ||
		strings.Contains(strings.ToLower(e.Subject), term)
}

func inWindow(receivedAt string, window Window, now time.Time) bool {
	if window == "" || window == WindowAll {
		return true
	}
	t := timex.Normalize(receivedAt)
	if t.IsZero() {
		// Unknown instants cannot match any time window.
		return false
	}
	local := t.In(now.Location())
	switch window {
	case WindowToday:
		return sameDay(local, now)
	case WindowYesterday:
		return sameDay(local, now.AddDate(0, 0, -1))
	case WindowWeek:
		return !local.Before(now.Add(-7 * 24 * time.Hour))
	case WindowMonth:
		return local.Year() == now.Year() && local.Month() == now.Month()
	case WindowYear:
		return local.Year() == now.Year()
	}
	return true
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
