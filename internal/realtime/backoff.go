package realtime

import "time"

const (
	defaultReconnectDelay = 5 * time.Second
	// maxBackoffShift keeps the doubling from overflowing time.Duration.
	maxBackoffShift = 16
)

// calculateBackoff returns the delay before reconnect attempt number
// failures+1. With maxDelay <= base the delay is fixed at base; otherwise it
// doubles per consecutive failure and is capped at maxDelay.
func calculateBackoff(failures int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		base = defaultReconnectDelay
	}
	if maxDelay <= base || failures <= 0 {
		return base
	}
	if failures > maxBackoffShift {
		failures = maxBackoffShift
	}
	delay := base << failures
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
