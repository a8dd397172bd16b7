package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/AntoineGS/tp2scan/internal/game"
	"github.com/AntoineGS/tp2scan/internal/selection"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("tp2scan"))
	b.WriteString(MutedTextStyle.Render("mode " + strings.ToUpper(m.sel.Mode().String())))
	b.WriteString("\n")
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")

	if m.detail != "" {
		b.WriteString(BoxStyle.Render(m.detail))
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{DetailKeys.Close}))
		return BaseStyle.Render(b.String())
	}

	b.WriteString(m.viewList())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	b.WriteString("\n")
	if line := m.viewStatus(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.filtering || m.filterInput.Value() != "" {
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(ListKeys))

	return BaseStyle.Render(b.String())
}

func (m Model) viewTabs() string {
	tabs := make([]string, 0, len(game.Targets))
	for _, t := range m.sel.Mode().Targets() {
		style := TabStyle
		if t == m.sel.Active() {
			style = ActiveTabStyle
		}
		tabs = append(tabs, style.Render(t.Label()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewList() string {
	tab := m.sel.Tab(m.sel.Active())
	if len(m.rows) == 0 {
		switch {
		case tab.Len() == 0:
			return MutedTextStyle.Render("  No components. Press r to scan.")
		case m.issuesOnly:
			return MutedTextStyle.Render("  No issues.")
		default:
			return MutedTextStyle.Render("  Nothing matches the filter.")
		}
	}

	end := min(m.offset+m.visibleRows(), len(m.rows))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.viewRow(tab, m.rows[i], i == m.cursor))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewRow(tab *selection.Tab, r row, selected bool) string {
	prefix := "  "
	if selected {
		prefix = CursorStyle.Render("> ")
	}
	width := m.width - 4

	if r.kind == rowGroup {
		arrow := "▸"
		if m.narrowed() || m.expanded[tab.Target][r.group] {
			arrow = "▾"
		}
		var label string
		var n int
		for _, g := range tab.Groups() {
			if g.Key == r.group {
				label, n = g.Label, len(g.Members)
			}
		}
		box := triBox(tab.GroupState(r.group))
		text := truncate(fmt.Sprintf("%s %s (%d)", arrow, label, n), width-lipgloss.Width(box)-3)
		return prefix + box + " " + GroupStyle.Render(text)
	}

	it, _ := tab.Item(r.key)
	e := tab.Entry(r.key)
	text := fmt.Sprintf("#%d %s", it.ID, it.Name)
	if it.Version != "" {
		text += " " + it.Version
	}
	if e.Seq > 0 {
		text += fmt.Sprintf("  [%d]", e.Seq)
	}
	text = truncate(text, width-len(IndentSpaces)-len(CheckboxChecked)-1)

	box := CheckboxUnchecked
	style := lipgloss.NewStyle()
	switch {
	case !tab.Allowed(r.key):
		box = CheckboxDisabled
		style = MutedTextStyle
	case e.Checked:
		box = CheckedStyle.Render(CheckboxChecked)
	}
	switch m.snap.Issue(tab.Target, r.key) {
	case selection.IssueMissing:
		style = MissingStyle
	case selection.IssueConflict:
		style = ConflictStyle
	case selection.IssueOK:
	}

	return prefix + IndentSpaces + box + " " + style.Render(text)
}

func triBox(s selection.Tri) string {
	switch s {
	case selection.Checked:
		return CheckedStyle.Render(CheckboxChecked)
	case selection.Indeterminate:
		return CheckedStyle.Render(CheckboxIndeterminate)
	default:
		return CheckboxUnchecked
	}
}

func (m Model) viewFooter() string {
	t := m.sel.Active()
	selected := len(m.sel.InstallOrder(t))
	c := m.snap.Counts[t]

	parts := []string{fmt.Sprintf("Selected: %d", selected)}
	missing := fmt.Sprintf("Missing: %d", c.Missing)
	if c.Missing > 0 {
		missing = MissingStyle.Render(missing)
	}
	conflicts := fmt.Sprintf("Conflicts: %d", c.Conflicts)
	if c.Conflicts > 0 {
		conflicts = ConflictStyle.Render(conflicts)
	}
	parts = append(parts, missing, conflicts)
	if m.issuesOnly {
		parts = append(parts, MutedTextStyle.Render("issues only"))
	}

	return StatusBarStyle.Render(strings.Join(parts, "  "))
}

func (m Model) viewStatus() string {
	switch {
	case m.scanning:
		return m.spinner.View() + " " + m.progress
	case m.err != nil:
		return ErrorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		return MutedTextStyle.Render(m.status)
	default:
		return ""
	}
}
