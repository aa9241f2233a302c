package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/GoCodeAlone/storeadmin/notify"
)

type styles struct {
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	header    lipgloss.Style
	cell      lipgloss.Style
	cursor    lipgloss.Style
	column    lipgloss.Style
	focused   lipgloss.Style
	hidden    lipgloss.Style
	muted     lipgloss.Style
	empty     lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	status    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
		activeTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true),
		header:    lipgloss.NewStyle().Bold(true).Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true),
		cell:      lipgloss.NewStyle().Padding(0, 1),
		cursor:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		column:    lipgloss.NewStyle().Padding(0, 1),
		focused:   lipgloss.NewStyle().Padding(0, 1).Reverse(true),
		hidden:    lipgloss.NewStyle().Padding(0, 1).Strikethrough(true).Foreground(lipgloss.Color("240")),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		empty:     lipgloss.NewStyle().Align(lipgloss.Center).Padding(1, 0),
		success:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failure:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

const helpText = "/ filter  s sort  ←/→ column  c hide/show  a all columns  space select  A all rows  " +
	"n/p page  y copy  e edit  d delete  r reload  S store  tab kind  q quit"

// View renders the console.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")
	b.WriteString(m.viewColumns())
	b.WriteString("\n")

	switch m.mode {
	case modeFilter:
		b.WriteString(m.filter.View())
	case modeScope:
		b.WriteString(m.scope.View())
	default:
		if m.snap.Filter != "" {
			b.WriteString("Filter: " + m.snap.Filter)
		} else {
			b.WriteString(m.styles.muted.Render("Filter: Search"))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(m.grid.View())
	b.WriteString("\n")
	if m.snap.Empty() {
		text := m.snap.Placeholder
		if m.loading {
			text = "Loading..."
		}
		b.WriteString(m.styles.empty.Width(lipgloss.Width(m.grid.View())).Render(text))
		b.WriteString("\n")
	}

	b.WriteString(m.viewFooter())
	b.WriteString("\n\n")
	if line := m.viewNotification(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status))
		b.WriteString("\n")
	}
	help := m.styles.muted
	if m.width > 0 {
		help = help.Width(m.width)
	}
	b.WriteString(help.Render(helpText))
	return b.String()
}

func (m *Model) viewTabs() string {
	parts := []string{m.styles.title.Render("storeadmin")}
	for i, p := range m.panes {
		style := m.styles.tab
		if i == m.active {
			style = m.styles.activeTab
		}
		parts = append(parts, style.Render(p.Title()))
	}
	scope := m.pane().Scope()
	if scope == "" {
		scope = "no store"
	}
	parts = append(parts, m.styles.muted.Render("store: "+scope))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// viewColumns lists every column so hidden ones can still be focused.
func (m *Model) viewColumns() string {
	hs := m.pane().Headers()
	visible := make(map[string]bool, len(m.snap.Headers))
	for _, h := range m.snap.Headers {
		visible[h.ID] = true
	}
	parts := make([]string, 0, len(hs)+1)
	parts = append(parts, m.styles.muted.Render("Columns:"))
	for i, h := range hs {
		name := h.Title
		if name == "" {
			name = h.ID
		}
		style := m.styles.column
		if !visible[h.ID] {
			style = m.styles.hidden
		}
		if i == m.focus {
			style = m.styles.focused.Strikethrough(!visible[h.ID])
		}
		parts = append(parts, style.Render(name+sortGlyph(h)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) viewFooter() string {
	prev, next := "[p] Previous", "[n] Next"
	if !m.snap.CanPrevious {
		prev = m.styles.muted.Render(prev)
	}
	if !m.snap.CanNext {
		next = m.styles.muted.Render(next)
	}
	return fmt.Sprintf("%s    Page %d of %d  %s  %s",
		m.snap.SelectionLabel(), m.snap.Page+1, m.snap.PageCount, prev, next)
}

func (m *Model) viewNotification() string {
	n, ok := m.notes.Last()
	if !ok {
		return ""
	}
	text := n.Title
	if n.Description != "" {
		text += ": " + n.Description
	}
	if n.Severity == notify.SeverityDestructive {
		return m.styles.failure.Render(text)
	}
	return m.styles.success.Render(text)
}
