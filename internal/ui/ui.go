package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/meshwatch/internal/controller"
	"github.com/five82/meshwatch/internal/prefs"
	"github.com/five82/meshwatch/internal/realtime"
	"github.com/five82/meshwatch/internal/resource"
)

// Session is the live controller state the dashboard renders and drives.
type Session interface {
	Status() resource.Snapshot[controller.SystemStatus]
	Devices() resource.Snapshot[[]controller.Device]
	Logs() resource.Snapshot[[]controller.DeviceLog]
	Motion() resource.Snapshot[[]controller.MotionEvent]
	Selection() (controller.Device, bool)
	ChannelState() realtime.State
	LogFilter() string

	SelectDevice(id string) bool
	FilterLogs(deviceID string)
	SendCommand(ctx context.Context, deviceID, command string, payload any) (controller.CommandAck, error)

	RefreshStatus()
	RefreshDevices()
	RefreshLogs()
	RefreshMotion()
}

// View represents the current active view.
type View int

const (
	ViewDevices View = iota
	ViewLogs
	ViewMotion
)

var viewNames = []string{"Devices", "Logs", "Motion"}

var logLevels = []string{"all", "error", "warning", "info"}

const (
	uiTick         = time.Second
	commandTimeout = 15 * time.Second
	recentMotion   = 5
	pageStep       = 10
)

// Options configures the UI.
type Options struct {
	Session Session
	// Changes signals that the session has new data. Optional; the UI
	// also redraws on its own tick.
	Changes    <-chan struct{}
	Controller string
	ThemeName  string
	LogLevel   string
	PrefsPath  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	session    Session
	changes    <-chan struct{}
	controller string
	prefsPath  string
	now        func() time.Time

	keys     keyMap
	help     help.Model
	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool

	cursor      int
	levelFilter string
	logView     viewport.Model

	pending  string // command in flight
	flash    string
	flashErr bool
}

// New creates a new Bubble Tea model.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	level := "all"
	for _, l := range logLevels {
		if l == opts.LogLevel {
			level = l
		}
	}

	return Model{
		ctx:         ctx,
		session:     opts.Session,
		changes:     opts.Changes,
		controller:  opts.Controller,
		prefsPath:   prefsPath,
		now:         time.Now,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		theme:       GetTheme(themeName),
		view:        ViewDevices,
		levelFilter: level,
		logView:     viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(uiTick), waitForChange(m.changes))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.logView.Width = msg.Width
		m.logView.Height = max(1, m.contentHeight()-1)
		m.ready = true
		m.syncLogs()
		return m, nil

	case tickMsg:
		return m, tickCmd(uiTick)

	case changeMsg:
		m.followSelection()
		m.syncLogs()
		return m, waitForChange(m.changes)

	case commandResultMsg:
		m.pending = ""
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("%s failed: %s", msg.command, classifyError(msg.err)), true)
		} else {
			m.setFlash(fmt.Sprintf("Command sent: %s to %s", msg.command, msg.deviceID), false)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.view = (m.view + 1) % View(len(viewNames))
		return m, nil
	case key.Matches(msg, m.keys.ShiftTab):
		m.view = (m.view + View(len(viewNames)) - 1) % View(len(viewNames))
		return m, nil
	case key.Matches(msg, m.keys.ViewDevices), key.Matches(msg, m.keys.Escape):
		m.view = ViewDevices
		return m, nil
	case key.Matches(msg, m.keys.ViewLogs):
		m.view = ViewLogs
		return m, nil
	case key.Matches(msg, m.keys.ViewMotion):
		m.view = ViewMotion
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
		return m, nil
	}

	switch m.view {
	case ViewDevices:
		return m.handleDevicesKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	if m.session == nil {
		return
	}
	switch m.view {
	case ViewDevices:
		m.session.RefreshStatus()
		m.session.RefreshDevices()
	case ViewLogs:
		m.session.RefreshLogs()
	case ViewMotion:
		m.session.RefreshMotion()
	}
}

func (m Model) handleDevicesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	devices := m.devices()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(m.cursor-1, devices)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(m.cursor+1, devices)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(0, devices)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(devices)-1, devices)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(m.cursor-pageStep, devices)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.cursor+pageStep, devices)
	case key.Matches(msg, m.keys.LedGreen):
		return m.command("led_color", map[string]any{"color": "00FF00"})
	case key.Matches(msg, m.keys.LedRed):
		return m.command("led_color", map[string]any{"color": "FF0000"})
	case key.Matches(msg, m.keys.Capture):
		return m.command("capture", map[string]any{"mode": "single"})
	case key.Matches(msg, m.keys.Burst):
		return m.command("capture", map[string]any{"mode": "burst", "frames": 5})
	case key.Matches(msg, m.keys.Reboot):
		return m.command("reboot", nil)
	case key.Matches(msg, m.keys.Status):
		return m.command("status", nil)
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CycleLevel):
		m.levelFilter = nextLevel(m.levelFilter)
		m.savePrefs()
		m.syncLogs()
		return m, nil
	case key.Matches(msg, m.keys.FilterDevice):
		m.toggleDeviceFilter()
		m.syncLogs()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logView.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logView.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *Model) moveCursor(to int, devices []controller.Device) {
	if len(devices) == 0 {
		return
	}
	to = min(max(to, 0), len(devices)-1)
	m.cursor = to
	if m.session != nil {
		m.session.SelectDevice(devices[to].DeviceID)
	}
}

// followSelection keeps the cursor on the selected device's row; the
// roster order can change between polls.
func (m *Model) followSelection() {
	devices := m.devices()
	if m.session != nil {
		if d, ok := m.session.Selection(); ok {
			for i, candidate := range devices {
				if candidate.DeviceID == d.DeviceID {
					m.cursor = i
					return
				}
			}
		}
	}
	if m.cursor >= len(devices) {
		m.cursor = max(len(devices)-1, 0)
	}
}

func (m *Model) toggleDeviceFilter() {
	if m.session == nil {
		return
	}
	if m.session.LogFilter() != "" {
		m.session.FilterLogs("")
		return
	}
	d, ok := m.session.Selection()
	if !ok {
		m.setFlash("Select a device to filter logs", true)
		return
	}
	m.session.FilterLogs(d.DeviceID)
}

// command validates a device command against the selected device and, when
// allowed, sends it in the background. Only one command is in flight at a
// time.
func (m Model) command(command string, payload any) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	d, ok := m.session.Selection()
	if !ok {
		m.setFlash("Select a device to show controls", true)
		return m, nil
	}
	if m.pending != "" {
		m.setFlash(fmt.Sprintf("Waiting for %s to finish", m.pending), true)
		return m, nil
	}
	if reason := commandBlocked(d, command); reason != "" {
		m.setFlash(reason, true)
		return m, nil
	}

	m.pending = command
	m.setFlash(fmt.Sprintf("Sending %s to %s...", command, d.DeviceID), false)
	return m, sendCommandCmd(m.ctx, m.session, d.DeviceID, command, payload)
}

// commandBlocked returns why command cannot go to d, or "".
func commandBlocked(d controller.Device, command string) string {
	switch command {
	case "status":
		return ""
	case "led_color":
		if d.Type != controller.DeviceMotion {
			return "LED control is only available on motion sensors"
		}
	case "capture":
		if d.Type != controller.DeviceCamera {
			return "Capture is only available on cameras"
		}
	}
	if !d.Online {
		return fmt.Sprintf("%s is offline; only status is available", d.DeviceID)
	}
	return ""
}

func nextLevel(current string) string {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = text
	m.flashErr = isErr
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LogLevel: m.levelFilter})
}

func (m Model) devices() []controller.Device {
	if m.session == nil {
		return nil
	}
	return m.session.Devices().Value
}

// contentHeight is the space between the header rows and the footer.
func (m Model) contentHeight() int {
	return max(m.height-3, 1)
}

// Messages

type tickMsg time.Time

type changeMsg struct{}

type commandResultMsg struct {
	deviceID string
	command  string
	err      error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		<-changes
		return changeMsg{}
	}
}

func sendCommandCmd(ctx context.Context, session Session, deviceID, command string, payload any) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		_, err := session.SendCommand(ctx, deviceID, command, payload)
		return commandResultMsg{deviceID: deviceID, command: command, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Session == nil {
		return fmt.Errorf("ui requires a session")
	}
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
