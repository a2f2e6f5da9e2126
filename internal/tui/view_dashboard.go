package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"triagedesk/internal/model"
	"triagedesk/internal/triage"
)

var (
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	metricsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)

	disconnectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))
)

var windowLabels = map[triage.Window]string{
	triage.WindowAll:       "all",
	triage.WindowToday:     "today",
	triage.WindowYesterday: "yesterday",
	triage.WindowWeek:      "week",
	triage.WindowMonth:     "month",
	triage.WindowYear:      "year",
}

func bucketLabel(s model.Status) string {
	switch s {
	case model.StatusNeedsReview:
		return "Needs review"
	case model.StatusApprovedPendingSend:
		return "Pending send"
	case model.StatusSent:
		return "Sent"
	}
	return string(s)
}

func (m *AppModel) View() string {
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder

	switch m.view {
	case viewDashboard:
		b.WriteString(m.dashboardHeader())
		b.WriteString("\n")
		b.WriteString(m.emailList.View())
		b.WriteString("\n")
		b.WriteString(dashboardFooter(m.searching))
	case viewDetail:
		b.WriteString(m.detailView())
	case viewConfirmDelete:
		b.WriteString(m.confirmDeleteView())
	case viewAssign:
		b.WriteString(m.assignView())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}

func (m *AppModel) dashboardHeader() string {
	buckets := m.state.Buckets()
	counts := map[model.Status]int{
		model.StatusNeedsReview:         len(buckets.Review),
		model.StatusApprovedPendingSend: len(buckets.Pending),
		model.StatusSent:                len(buckets.Sent),
	}

	var tabs []string
	for i, s := range []model.Status{model.StatusNeedsReview, model.StatusApprovedPendingSend, model.StatusSent} {
		label := fmt.Sprintf("%d:%s (%d)", i+1, bucketLabel(s), counts[s])
		if s == m.bucket {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(tabs, " "))
	if !m.state.Mailbox().Connected {
		b.WriteString("  ")
		b.WriteString(disconnectedStyle.Render("MAIL DISCONNECTED"))
	}
	b.WriteString("\n")
	b.WriteString(m.metricsLine())
	b.WriteString("\n")
	b.WriteString(m.filterLine())
	return b.String()
}

func (m *AppModel) metricsLine() string {
	mt := m.state.Metrics()
	return metricsStyle.Render(fmt.Sprintf(
		"total %d  ·  today %d  ·  auto %d  ·  review %d  ·  avg confidence %.0f%%  ·  threshold %.2f",
		mt.EmailsTotal, mt.EmailsToday, mt.AutoCount, mt.ReviewCount, mt.AvgConfidence*100, m.threshold))
}

func (m *AppModel) filterLine() string {
	if m.searching {
		return m.searchInput.View()
	}
	line := fmt.Sprintf("window: %s", windowLabels[m.window])
	if term := m.searchInput.Value(); term != "" {
		line += fmt.Sprintf("  search: %q", term)
	}
	if n := m.state.Selection().Len(); n > 0 {
		line += fmt.Sprintf("  selected: %d", n)
	}
	return metricsStyle.Render(line)
}

func dashboardFooter(searching bool) string {
	if searching {
		return footerStyle.Render("enter: keep filter  esc: clear")
	}
	return footerStyle.Render("enter: open  space: select  a/A: all/none  v: approve  y: send  d: delete  /: search  f: window  s: sync  +/-: threshold  q: quit")
}

func (m *AppModel) confirmDeleteView() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Delete %d email(s)?\n\n", len(m.confirmIDs)))
	shown := 0
	for _, id := range m.confirmIDs {
		if e, ok := m.state.Get(id); ok {
			b.WriteString(fmt.Sprintf("  #%d %s — %s\n", e.ID, e.StudentName, e.Subject))
			shown++
		}
		if shown == 10 {
			b.WriteString(fmt.Sprintf("  ...and %d more\n", len(m.confirmIDs)-shown))
			break
		}
	}
	b.WriteString(footerStyle.Render("y: delete  n/esc: cancel"))
	return b.String()
}
