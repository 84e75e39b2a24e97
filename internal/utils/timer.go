package utils

import "time"

// Timer measures wall-clock time from construction (or the last Start) to Stop.
type Timer struct {
	startTime time.Time
	duration  time.Duration
}

// NewTimer returns a running Timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Start restarts the measurement.
func (t *Timer) Start() {
	t.startTime = time.Now()
}

// Stop captures the time elapsed since the last Start. Calling it again
// overwrites the previous measurement.
func (t *Timer) Stop() {
	t.duration = time.Since(t.startTime)
}

// GetDuration returns the last captured duration, or zero before Stop.
func (t *Timer) GetDuration() time.Duration {
	return t.duration
}
