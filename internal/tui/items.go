package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"triagedesk/internal/model"
	"triagedesk/internal/timex"
)

var severityStyles = map[timex.Severity]lipgloss.Style{
	timex.SeverityGreen:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	timex.SeverityYellow:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	timex.SeverityRed:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	timex.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	timex.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	timex.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	timex.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

func severityBadge(w timex.Wait) string {
	if w.Severity == "" {
		return w.Label
	}
	if style, ok := severityStyles[w.Severity]; ok {
		return style.Render(fmt.Sprintf("%s (%s)", w.Label, w.Severity))
	}
	return fmt.Sprintf("%s (%s)", w.Label, w.Severity)
}

// emailItem wraps an Email for the bucket list display.
type emailItem struct {
	email     model.Email
	selected  bool
	hasDraft  bool
	assigned  string
	wait      timex.Wait
	confident bool
}

func (i emailItem) FilterValue() string {
	return i.email.StudentName + " " + i.email.StudentID + " " + i.email.Subject
}

func (i emailItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	name := i.email.StudentName
	if name == "" {
		name = "Unknown student"
	}
	return fmt.Sprintf("%s %s — %s", mark, name, i.email.Subject)
}

func (i emailItem) Description() string {
	parts := []string{
		"waiting " + severityBadge(i.wait),
		fmt.Sprintf("confidence %.0f%%", i.email.Confidence*100),
	}
	if i.confident {
		parts = append(parts, "auto")
	}
	if i.hasDraft {
		parts = append(parts, "draft")
	}
	if i.assigned != "" {
		parts = append(parts, "@"+i.assigned)
	}
	return strings.Join(parts, "  ·  ")
}

// waitFor computes the badge shown next to an email: for sent mail the
// response time (received -> approved), otherwise how long it has been
// waiting to be picked up.
func waitFor(e model.Email, now time.Time) timex.Wait {
	received := timex.Normalize(e.ReceivedAt)
	if e.Status == model.StatusSent {
		return timex.Elapsed(received, timex.Normalize(e.ApprovedAt), timex.ResponseTiers)
	}
	return timex.Elapsed(received, now, timex.WaitingTiers)
}
