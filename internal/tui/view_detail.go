package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"triagedesk/internal/model"
	"triagedesk/internal/timex"
)

var (
	detailHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				PaddingBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245"))

	draftMarkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))
)

func (m *AppModel) detailView() string {
	if m.detail == nil {
		return "No email selected\n"
	}

	var b strings.Builder
	b.WriteString(m.detailHeader(*m.detail))
	b.WriteString("\n")
	if m.editing {
		b.WriteString(sectionStyle.Render("Edit reply"))
		b.WriteString("\n")
		b.WriteString(m.draftArea.View())
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("ctrl+s: save draft  esc: cancel"))
	} else {
		b.WriteString(m.detailViewport.View())
		b.WriteString("\n")
		b.WriteString(detailFooter(m.detail.Status))
	}
	return b.String()
}

func (m *AppModel) detailHeader(e model.Email) string {
	name := e.StudentName
	if name == "" {
		name = "Unknown student"
	}
	wait := waitFor(e, time.Now())
	lines := []string{
		fmt.Sprintf("From: %s (%s)", name, e.StudentID),
		fmt.Sprintf("Subject: %s", e.Subject),
		fmt.Sprintf("Received: %s  ·  waiting %s", shortDate(e.ReceivedAt), severityBadge(wait)),
		fmt.Sprintf("Status: %s  ·  confidence %.0f%%", bucketLabel(e.Status), e.Confidence*100),
	}
	if person := m.state.Assignment(e.ID); person != "" {
		lines = append(lines, "Assigned to: "+person)
	}
	return detailHeaderStyle.Render(strings.Join(lines, "\n"))
}

func (m *AppModel) detailContent(e model.Email) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Message"))
	b.WriteString("\n")
	b.WriteString(e.Body)
	b.WriteString("\n\n")

	if m.state.Drafts().Has(e.ID) {
		b.WriteString(sectionStyle.Render("Reply "))
		b.WriteString(draftMarkStyle.Render("(edited draft)"))
	} else {
		b.WriteString(sectionStyle.Render("Reply (suggested)"))
	}
	b.WriteString("\n")
	b.WriteString(m.state.Drafts().ReplyFor(e))
	b.WriteString("\n")
	return b.String()
}

func detailFooter(s model.Status) string {
	keys := "e: edit reply  r: reset draft  p: publish reply  g/G: assign/unassign  d: delete  esc: back  q: quit"
	switch s {
	case model.StatusNeedsReview:
		keys = "v: approve  y: send now  " + keys
	case model.StatusApprovedPendingSend:
		keys = "y: send  " + keys
	}
	return footerStyle.Render(keys)
}

func (m *AppModel) assignView() string {
	if m.detail == nil {
		return "No email selected\n"
	}
	return fmt.Sprintf("Assign #%d %s — %s to:\n\n%s\n%s",
		m.detail.ID, m.detail.StudentName, m.detail.Subject,
		m.assignInput.View(),
		footerStyle.Render("enter: assign  esc: cancel"))
}

// shortDate renders a normalized timestamp compactly; unparseable input is
// shown as the unknown marker.
func shortDate(raw string) string {
	t := timex.Normalize(raw)
	if t.IsZero() {
		return timex.LabelUnknown
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}
