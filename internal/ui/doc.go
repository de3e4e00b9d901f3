// Package ui provides the meshwatch terminal dashboard.
//
// # Architecture Overview
//
// The dashboard is a Bubble Tea program over an app.Session, seen here
// through the Session interface. It never polls on its own: every value it
// draws comes from the session's cached snapshots, and redraws are driven by
// the session's change signal plus a one second tick that keeps "last seen"
// labels current.
//
// # Package Structure
//
//   - ui.go: Model, key handling, messages and Run
//   - header.go: status bar, push-channel badge, view tabs and footer
//   - views.go: devices, logs and motion views
//   - keys.go: key bindings shared by handling and the help overlay
//   - theme.go: color themes
//   - format.go: uptime, relative time, signal and error labels
//
// # View Types
//
//   - Devices (d): roster, selected device with its controls, recent motion
//   - Logs (l): log viewport with level filter (f) and device filter (F)
//   - Motion (m): every cached motion event
//
// # Commands
//
// Commands target the selected device and run one at a time. LED control is
// offered on motion sensors, capture on cameras. An offline device accepts
// only "status"; other commands are refused locally with a hint instead of
// being sent.
//
// # Preferences
//
// The theme (T) and log level filter are written to prefs.toml when changed.
package ui
