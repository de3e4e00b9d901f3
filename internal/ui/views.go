package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/meshwatch/internal/controller"
)

func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Height(m.contentHeight()).MaxHeight(m.contentHeight()).Render(m.renderContent()))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderContent() string {
	switch m.view {
	case ViewLogs:
		return m.renderLogs()
	case ViewMotion:
		return m.renderMotion()
	default:
		return m.renderDevices()
	}
}

// renderDevices shows the roster on the left and the selected device with
// its controls and recent motion on the right.
func (m Model) renderDevices() string {
	styles := m.theme.Styles()
	snap := m.session.Devices()
	listWidth := max(m.width/2-2, 30)

	var list strings.Builder
	list.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("Devices (%d)", len(snap.Value))))
	list.WriteString("\n")
	switch {
	case snap.Loading:
		list.WriteString(styles.MutedText.Render("Loading devices..."))
	case len(snap.Value) == 0:
		list.WriteString(styles.MutedText.Render("No devices reported"))
	}

	selectedID := ""
	if d, ok := m.session.Selection(); ok {
		selectedID = d.DeviceID
	}
	now := m.now()
	for i, d := range snap.Value {
		marker := "  "
		if d.DeviceID == selectedID {
			marker = "▸ "
		}
		row := fmt.Sprintf("%s%s %s %s %s",
			marker,
			padRight(truncate(d.DeviceID, 14), 14),
			padRight(string(d.Type), 6),
			signalBars(d.RSSI),
			lastSeenLabel(d.LastSeenTime(), now),
		)
		state := styles.Badge(deviceState(d))
		if i == m.cursor {
			list.WriteString(styles.Selected.Render(row) + " " + state)
		} else {
			list.WriteString(styles.Text.Render(row) + " " + state)
		}
		list.WriteString("\n")
	}
	if snap.Err != nil {
		list.WriteString(styles.DangerText.Render("devices: " + classifyError(snap.Err)))
	}

	left := styles.FocusPane.Width(listWidth).Render(strings.TrimRight(list.String(), "\n"))
	right := lipgloss.JoinVertical(lipgloss.Left,
		styles.Pane.Width(max(m.width-listWidth-4, 30)).Render(m.renderDetail()),
		styles.Pane.Width(max(m.width-listWidth-4, 30)).Render(m.renderRecentMotion()),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	d, ok := m.session.Selection()
	if !ok {
		return styles.MutedText.Render("Select a device to show controls")
	}

	rows := []string{
		styles.AccentText.Bold(true).Render(d.DeviceID) + "  " + styles.Badge(deviceState(d)),
		fmt.Sprintf("Type:      %s", d.Type),
		fmt.Sprintf("Signal:    %d dBm %s", d.RSSI, signalBars(d.RSSI)),
		fmt.Sprintf("Motion:    %s", d.MotionState),
		fmt.Sprintf("Battery:   %s", batteryLabel(d)),
		fmt.Sprintf("Last seen: %s", lastSeenLabel(d.LastSeenTime(), m.now())),
		"",
	}

	var controls []string
	switch d.Type {
	case controller.DeviceMotion:
		controls = append(controls, "1 LED green", "2 LED red")
	case controller.DeviceCamera:
		controls = append(controls, "c capture", "C burst x5")
	}
	controls = append(controls, "B reboot", "s status")
	rows = append(rows, styles.MutedText.Render(strings.Join(controls, "  ")))
	if !d.Online {
		rows = append(rows, styles.WarningText.Render("Device offline: only status is available"))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderRecentMotion() string {
	styles := m.theme.Styles()
	events := m.session.Motion().Value
	if len(events) > recentMotion {
		events = events[:recentMotion]
	}

	lines := []string{styles.AccentText.Bold(true).Render("Recent motion")}
	if len(events) == 0 {
		lines = append(lines, styles.MutedText.Render("No motion recorded"))
	}
	for _, e := range events {
		lines = append(lines, m.motionLine(e))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMotion() string {
	styles := m.theme.Styles()
	snap := m.session.Motion()

	lines := []string{styles.AccentText.Bold(true).Render(fmt.Sprintf("Motion events (%d)", len(snap.Value)))}
	if snap.Err != nil {
		lines = append(lines, styles.DangerText.Render("motion: "+classifyError(snap.Err)))
	}
	limit := max(m.contentHeight()-len(lines), 0)
	for i, e := range snap.Value {
		if i >= limit {
			break
		}
		lines = append(lines, m.motionLine(e))
	}
	return strings.Join(lines, "\n")
}

func (m Model) motionLine(e controller.MotionEvent) string {
	styles := m.theme.Styles()
	when := e.Timestamp
	if t := e.ParsedTime(); !t.IsZero() {
		when = t.Local().Format("15:04:05") + " " + styles.FaintText.Render("("+lastSeenLabel(t, m.now())+")")
	}
	line := styles.StateText("detected", "●") + " " + padRight(truncate(e.DeviceID, 14), 14) + " " + when
	if e.MediaPath != "" {
		line += " " + styles.MutedText.Render(truncate(e.MediaPath, 40))
	}
	return line
}

// renderLogs renders the filter line above the log viewport.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	snap := m.session.Logs()

	filter := "level: " + m.levelFilter
	if id := m.session.LogFilter(); id != "" {
		filter += "  device: " + id
	} else {
		filter += "  device: all"
	}
	head := styles.AccentText.Bold(true).Render("Logs") + "  " + styles.MutedText.Render(filter)
	if snap.Err != nil {
		head += "  " + styles.DangerText.Render("logs: "+classifyError(snap.Err))
	}
	return head + "\n" + m.logView.View()
}

// syncLogs rebuilds the log viewport from the current snapshot and filter.
func (m *Model) syncLogs() {
	if m.session == nil {
		return
	}
	logs := filterLogs(m.session.Logs().Value, m.levelFilter)
	if len(logs) == 0 {
		m.logView.SetContent(m.theme.Styles().MutedText.Render("No logs match the current filter"))
		return
	}
	lines := make([]string, 0, len(logs))
	for _, l := range logs {
		lines = append(lines, m.logLine(l))
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
}

func (m Model) logLine(l controller.DeviceLog) string {
	styles := m.theme.Styles()
	when := l.Timestamp
	if t := l.ParsedTime(); !t.IsZero() {
		when = t.Local().Format("15:04:05")
	}
	level := string(l.Level())
	return fmt.Sprintf("%s %s %s %s %s",
		styles.FaintText.Render(padRight(when, 8)),
		styles.StateText(level, padRight(strings.ToUpper(level), 7)),
		padRight(truncate(l.DeviceID, 12), 12),
		styles.MutedText.Render(padRight(truncate(l.Category, 10), 10)),
		l.Message,
	)
}

// filterLogs keeps the entries matching level; "all" keeps everything.
func filterLogs(logs []controller.DeviceLog, level string) []controller.DeviceLog {
	if level == "" || level == "all" {
		return logs
	}
	out := make([]controller.DeviceLog, 0, len(logs))
	for _, l := range logs {
		if string(l.Level()) == level {
			out = append(out, l)
		}
	}
	return out
}
