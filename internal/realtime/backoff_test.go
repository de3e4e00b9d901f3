package realtime

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	base := 2 * time.Second
	maxDelay := 30 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 100, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, base, maxDelay)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v, %v) = %v, want %v", tt.failures, base, maxDelay, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_FixedWhenNoCap(t *testing.T) {
	for failures := 0; failures <= 20; failures++ {
		if got := calculateBackoff(failures, 5*time.Second, 0); got != 5*time.Second {
			t.Fatalf("calculateBackoff(%d, 5s, 0) = %v, want fixed 5s", failures, got)
		}
	}
}

func TestCalculateBackoff_DefaultBase(t *testing.T) {
	if got := calculateBackoff(3, 0, 0); got != defaultReconnectDelay {
		t.Fatalf("calculateBackoff with zero base = %v, want %v", got, defaultReconnectDelay)
	}
}
