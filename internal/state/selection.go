package state

import (
	"encoding/json"
	"sync"

	"github.com/five82/meshwatch/internal/controller"
)

// Selection holds the device the consumer currently has focused. It is fed
// from two sides: push notifications overlay partial fields with Merge, and
// devices-resource results replace it wholesale with Sync. Sequence numbers
// from the devices resource order the two so a roster fetch issued before a
// merge can never overwrite the merged fields.
type Selection struct {
	mu       sync.RWMutex
	device   controller.Device
	selected bool
	mark     uint64 // devices seq issued when the last merge landed
	synced   uint64 // devices seq of the last applied roster
}

// Select focuses d. seq is the devices-resource sequence d was read from.
// A merge mark left by a previously focused device is dropped.
func (s *Selection) Select(d controller.Device, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = cloneDevice(d)
	s.selected = true
	s.mark = 0
	if seq > s.synced {
		s.synced = seq
	}
}

// Clear drops the focused device.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = controller.Device{}
	s.selected = false
	s.mark = 0
}

// Current returns a copy of the focused device.
func (s *Selection) Current() (controller.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.selected {
		return controller.Device{}, false
	}
	return cloneDevice(s.device), true
}

// ID returns the focused device id, or "" when nothing is selected.
func (s *Selection) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.selected {
		return ""
	}
	return s.device.DeviceID
}

// Merge overlays the fields present in data onto the focused device when its
// id is deviceID. Fields absent from data are kept. mark is the devices
// resource's most recently issued sequence at the time of the push.
func (s *Selection) Merge(deviceID string, data json.RawMessage, mark uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected || s.device.DeviceID != deviceID {
		return false, nil
	}
	merged, err := overlay(s.device, data)
	if err != nil {
		return false, err
	}
	s.device = merged
	if mark > s.mark {
		s.mark = mark
	}
	return true, nil
}

// Sync replaces the focused device from a roster fetched with sequence seq.
// Rosters requested before the latest merge, or older than the last applied
// roster, are ignored. A roster that no longer lists the device leaves the
// projection untouched.
func (s *Selection) Sync(devices []controller.Device, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected || seq <= s.mark || seq <= s.synced {
		return false
	}
	s.synced = seq
	for _, d := range devices {
		if d.DeviceID == s.device.DeviceID {
			s.device = cloneDevice(d)
			return true
		}
	}
	return false
}

func overlay(d controller.Device, data json.RawMessage) (controller.Device, error) {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(data, &patch); err != nil {
		return d, &controller.ParseError{Source: "device_status data", Err: err}
	}

	base, err := json.Marshal(d)
	if err != nil {
		return d, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return d, err
	}
	for k, v := range patch {
		fields[k] = v
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return d, err
	}
	var out controller.Device
	if err := json.Unmarshal(raw, &out); err != nil {
		return d, &controller.ParseError{Source: "device_status data", Err: err}
	}
	return out, nil
}

func cloneDevice(d controller.Device) controller.Device {
	if d.BatteryPercent != nil {
		v := *d.BatteryPercent
		d.BatteryPercent = &v
	}
	return d
}
