package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/meshwatch/internal/controller"
)

// formatUptime renders a controller uptime as hours and minutes.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

// lastSeenLabel renders how long ago a device checked in. Anything older than
// a day shows the date.
func lastSeenLabel(seen, now time.Time) string {
	if seen.IsZero() {
		return "never"
	}
	ago := now.Sub(seen)
	switch {
	case ago < time.Minute:
		return "now"
	case ago < 24*time.Hour:
		return humanizeDuration(ago) + " ago"
	default:
		return seen.Local().Format("2006-01-02")
	}
}

// signalBars maps an RSSI in dBm to a four-step bar.
func signalBars(rssi int) string {
	bars := (rssi + 100 + 24) / 25
	if bars < 1 {
		bars = 1
	}
	if bars > 4 {
		bars = 4
	}
	return strings.Repeat("▂", bars) + strings.Repeat("▁", 4-bars)
}

// deviceState is the single state used to color a device row.
func deviceState(d controller.Device) string {
	if !d.Online {
		return "offline"
	}
	switch d.MotionState {
	case controller.MotionDetected, controller.MotionCooldown:
		return string(d.MotionState)
	default:
		return "online"
	}
}

func batteryLabel(d controller.Device) string {
	if d.BatteryPercent == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *d.BatteryPercent)
}

// classifyError returns a short description of a fetch or command failure.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *controller.HTTPError
	var parseErr *controller.ParseError
	var netErr *controller.NetworkError
	switch {
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	case errors.As(err, &parseErr):
		return "BAD RESPONSE"
	case errors.As(err, &netErr):
		msg := netErr.Error()
		switch {
		case strings.Contains(msg, "connection refused"):
			return "OFFLINE"
		case strings.Contains(msg, "no such host"):
			return "HOST NOT FOUND"
		case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
			return "TIMEOUT"
		}
		return "UNREACHABLE"
	default:
		return "ERROR"
	}
}

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}
