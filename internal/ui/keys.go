package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the dashboard.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding

	// View switching
	ViewDevices key.Binding
	ViewLogs    key.Binding
	ViewMotion  key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Device commands
	LedGreen key.Binding
	LedRed   key.Binding
	Capture  key.Binding
	Burst    key.Binding
	Reboot   key.Binding
	Status   key.Binding

	// Logs
	CycleLevel   key.Binding
	FilterDevice key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Cycle views (reverse)"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Return to devices"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh view"),
		),

		ViewDevices: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Devices"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Logs"),
		),
		ViewMotion: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Motion events"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),

		LedGreen: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "LED green (clear)"),
		),
		LedRed: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "LED red (alert)"),
		),
		Capture: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Capture photo"),
		),
		Burst: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Burst capture (5)"),
		),
		Reboot: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "Reboot device"),
		),
		Status: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Request status"),
		),

		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle level filter"),
		),
		FilterDevice: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Only selected device"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDevices, k.ViewLogs, k.ViewMotion, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.LedGreen, k.LedRed, k.Capture, k.Burst, k.Reboot, k.Status},
		{k.CycleLevel, k.FilterDevice, k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}
