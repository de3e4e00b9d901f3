package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/meshwatch/internal/realtime"
)

// renderHeader renders the controller status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	status := m.session.Status()

	parts := []string{styles.Logo.Render("meshwatch")}
	if m.controller != "" {
		parts = append(parts, styles.MutedText.Render(m.controller))
	}
	parts = append(parts, m.channelBadge())

	switch {
	case status.HasValue:
		s := status.Value
		parts = append(parts,
			styles.Text.Render("up "+formatUptime(s.Uptime())),
			styles.Text.Render(fmt.Sprintf("%d/%d online", s.OnlineCount, s.DeviceCount)),
			styles.Text.Render(fmt.Sprintf("mesh %d dBm", s.MeshRSSI)),
			styles.MutedText.Render(fmt.Sprintf("%d MB", s.MemoryUsedMB)),
		)
	case status.Loading:
		parts = append(parts, styles.MutedText.Render("connecting..."))
	}

	if status.Err != nil {
		label := classifyError(status.Err)
		if status.IsOffline() {
			label = "CONTROLLER " + label
		}
		warn := styles.DangerText.Render(label)
		if status.HasValue && !status.UpdatedAt.IsZero() {
			warn += styles.MutedText.Render(" (data from " + humanizeDuration(m.now().Sub(status.UpdatedAt)) + " ago)")
		}
		parts = append(parts, warn)
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) channelBadge() string {
	styles := m.theme.Styles()
	state := m.session.ChannelState()
	switch state {
	case realtime.StateOpen:
		return styles.StateText("online", "● live")
	case realtime.StateClosed:
		return styles.StateText("offline", "● closed")
	default:
		return styles.StateText("cooldown", "● "+state.String())
	}
}

// renderCommandBar renders the view tabs and the last command outcome.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()

	tabs := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		if View(i) == m.view {
			tabs = append(tabs, styles.Selected.Render(" "+name+" "))
			continue
		}
		tabs = append(tabs, styles.MutedText.Render(" "+name+" "))
	}
	bar := strings.Join(tabs, " ")

	if m.flash != "" {
		style := styles.SuccessText
		if m.flashErr {
			style = styles.DangerText
		}
		bar += "   " + style.Render(truncate(m.flash, max(m.width-40, 20)))
	}
	return lipgloss.NewStyle().Width(m.width).Render(bar)
}

func (m Model) renderFooter() string {
	return m.theme.Styles().Footer.Width(m.width).Render(m.help.View(m.keys))
}
