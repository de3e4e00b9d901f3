package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the key binding overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	full := m.help
	full.ShowAll = true
	content := styles.Text.Bold(true).Render("Keyboard Shortcuts") + "\n\n" + full.View(m.keys)

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Render(content)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
