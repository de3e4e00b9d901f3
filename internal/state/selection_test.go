package state

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/five82/meshwatch/internal/controller"
)

func intPtr(v int) *int { return &v }

func sampleDevice() controller.Device {
	return controller.Device{
		DeviceID:       "dev-1",
		Type:           controller.DeviceMotion,
		Online:         true,
		RSSI:           -55,
		LastSeen:       "2026-01-02T03:04:05Z",
		MotionState:    controller.MotionClear,
		BatteryPercent: intPtr(90),
	}
}

func TestSelection_MergeOverlaysOnlyPresentFields(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)

	ok, err := s.Merge("dev-1", json.RawMessage(`{"device_id":"dev-1","battery_percent":42}`), 1)
	if err != nil || !ok {
		t.Fatalf("Merge = %v, %v; want true, nil", ok, err)
	}

	got, _ := s.Current()
	want := sampleDevice()
	want.BatteryPercent = intPtr(42)
	if got.BatteryPercent == nil || *got.BatteryPercent != 42 {
		t.Fatalf("BatteryPercent = %v, want 42", got.BatteryPercent)
	}
	got.BatteryPercent, want.BatteryPercent = nil, nil
	if got != want {
		t.Fatalf("device = %#v, want other fields intact %#v", got, want)
	}
}

func TestSelection_MergeIgnoresOtherDevices(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)

	ok, err := s.Merge("dev-2", json.RawMessage(`{"online":false}`), 1)
	if err != nil || ok {
		t.Fatalf("Merge = %v, %v; want false, nil", ok, err)
	}
	if got, _ := s.Current(); !got.Online {
		t.Fatalf("Online = false, want untouched")
	}

	var empty Selection
	if ok, _ := empty.Merge("dev-1", json.RawMessage(`{}`), 1); ok {
		t.Fatalf("Merge on empty selection = true, want false")
	}
}

func TestSelection_MergeRejectsBadData(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)

	_, err := s.Merge("dev-1", json.RawMessage(`[1,2]`), 1)
	var parseErr *controller.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Merge error = %v, want *ParseError", err)
	}
	_, err = s.Merge("dev-1", json.RawMessage(`{"rssi":"strong"}`), 1)
	if !errors.As(err, &parseErr) {
		t.Fatalf("Merge error = %v, want *ParseError for wrong field type", err)
	}
	if got, _ := s.Current(); got.RSSI != -55 {
		t.Fatalf("RSSI = %d, want untouched -55", got.RSSI)
	}
}

func TestSelection_SyncDropsRostersIssuedBeforeMerge(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)

	// Fetch #2 is in flight when the push arrives.
	if _, err := s.Merge("dev-1", json.RawMessage(`{"motion_state":"detected"}`), 2); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	stale := sampleDevice()
	if s.Sync([]controller.Device{stale}, 2) {
		t.Fatalf("Sync(seq 2) = true, want roster from before the merge ignored")
	}
	if got, _ := s.Current(); got.MotionState != controller.MotionDetected {
		t.Fatalf("MotionState = %q, want merged value kept", got.MotionState)
	}

	fresh := sampleDevice()
	fresh.MotionState = controller.MotionCooldown
	if !s.Sync([]controller.Device{fresh}, 3) {
		t.Fatalf("Sync(seq 3) = false, want newer roster applied")
	}
	if got, _ := s.Current(); got.MotionState != controller.MotionCooldown {
		t.Fatalf("MotionState = %q, want %q", got.MotionState, controller.MotionCooldown)
	}

	if s.Sync([]controller.Device{stale}, 3) {
		t.Fatalf("Sync with repeated seq = true, want false")
	}
}

func TestSelection_SelectDropsPreviousMergeMark(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)
	if _, err := s.Merge("dev-1", json.RawMessage(`{"battery_percent":40}`), 10); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	other := sampleDevice()
	other.DeviceID = "dev-2"
	s.Select(other, 3)

	fresh := other
	fresh.RSSI = -80
	if !s.Sync([]controller.Device{sampleDevice(), fresh}, 5) {
		t.Fatalf("Sync(seq 5) = false, want roster applied to newly selected device")
	}
	if got, _ := s.Current(); got.RSSI != -80 {
		t.Fatalf("RSSI = %d, want -80", got.RSSI)
	}

	s.Clear()
	s.Select(sampleDevice(), 5)
	if _, err := s.Merge("dev-1", json.RawMessage(`{"rssi":-60}`), 20); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	s.Clear()
	s.Select(other, 6)
	if !s.Sync([]controller.Device{fresh}, 7) {
		t.Fatalf("Sync(seq 7) after Clear = false, want mark reset")
	}
}

func TestSelection_SyncKeepsDeviceMissingFromRoster(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)
	if s.Sync([]controller.Device{{DeviceID: "other"}}, 2) {
		t.Fatalf("Sync = true, want false when device absent")
	}
	if got, ok := s.Current(); !ok || got.DeviceID != "dev-1" {
		t.Fatalf("Current = %#v, %v; want dev-1 kept", got, ok)
	}
}

func TestSelection_CurrentReturnsCopy(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)

	got, _ := s.Current()
	*got.BatteryPercent = 1

	again, _ := s.Current()
	if *again.BatteryPercent != 90 {
		t.Fatalf("BatteryPercent = %d, want 90; Current must copy", *again.BatteryPercent)
	}
}

func TestSelection_Clear(t *testing.T) {
	var s Selection
	s.Select(sampleDevice(), 1)
	s.Clear()
	if _, ok := s.Current(); ok {
		t.Fatalf("Current ok = true after Clear")
	}
	if s.ID() != "" {
		t.Fatalf("ID = %q, want empty", s.ID())
	}
	if s.Sync([]controller.Device{sampleDevice()}, 10) {
		t.Fatalf("Sync after Clear = true, want false")
	}
}
