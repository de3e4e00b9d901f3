package controller

import (
	"strings"
	"time"
)

const controllerTimestampLayout = "2006-01-02 15:04:05"

// SystemStatus mirrors the payload returned by /api/v1/status.
type SystemStatus struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	DeviceCount   int   `json:"device_count"`
	OnlineCount   int   `json:"online_count"`
	MeshRSSI      int   `json:"mesh_rssi"`
	MemoryUsedMB  int   `json:"memory_used_mb"`
}

// Uptime returns the controller uptime as a duration.
func (s SystemStatus) Uptime() time.Duration {
	if s.UptimeSeconds <= 0 {
		return 0
	}
	return time.Duration(s.UptimeSeconds) * time.Second
}

// DeviceType identifies the hardware class of a mesh node.
type DeviceType string

const (
	DeviceMotion DeviceType = "motion"
	DeviceCamera DeviceType = "camera"
)

// MotionState is the sensor state reported by a node.
type MotionState string

const (
	MotionClear    MotionState = "clear"
	MotionDetected MotionState = "detected"
	MotionCooldown MotionState = "cooldown"
)

// Device describes one mesh node from /api/v1/devices. DeviceID is opaque.
type Device struct {
	DeviceID       string      `json:"device_id"`
	Type           DeviceType  `json:"type"`
	Online         bool        `json:"online"`
	RSSI           int         `json:"rssi"`
	LastSeen       string      `json:"last_seen"`
	MotionState    MotionState `json:"motion_state"`
	BatteryPercent *int        `json:"battery_percent,omitempty"`
}

// LastSeenTime returns LastSeen as time.Time when it parses.
func (d Device) LastSeenTime() time.Time {
	return parseTime(d.LastSeen)
}

// LogLevel is the normalized severity of a DeviceLog.
type LogLevel string

const (
	LevelError   LogLevel = "error"
	LevelWarning LogLevel = "warning"
	LevelInfo    LogLevel = "info"
	LevelOther   LogLevel = "other"
)

// DeviceLog is a single entry from /api/logs. ID increases monotonically.
type DeviceLog struct {
	ID        int64  `json:"id"`
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	RawLevel  string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// Level normalizes the wire level.
func (l DeviceLog) Level() LogLevel {
	switch strings.ToLower(strings.TrimSpace(l.RawLevel)) {
	case "error", "err":
		return LevelError
	case "warning", "warn":
		return LevelWarning
	case "info":
		return LevelInfo
	default:
		return LevelOther
	}
}

// ParsedTime returns the timestamp as time.Time when possible.
func (l DeviceLog) ParsedTime() time.Time {
	return parseTime(l.Timestamp)
}

// MotionEvent is a single entry from /api/motion.
type MotionEvent struct {
	ID        int64  `json:"id"`
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	MediaPath string `json:"media_path,omitempty"`
}

// ParsedTime returns the timestamp as time.Time when possible.
func (e MotionEvent) ParsedTime() time.Time {
	return parseTime(e.Timestamp)
}

// CommandRequest is the body posted to /api/v1/command.
type CommandRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	Command  string `json:"command" validate:"required,printascii"`
	Payload  any    `json:"payload"`
}

// CommandAck is the decoded acknowledgement body. It is nil when the
// controller answered with an empty body.
type CommandAck map[string]any

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(controllerTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
