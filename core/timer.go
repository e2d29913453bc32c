package core

import "sync/atomic"

// Timer frequencies
const (
	TickHz       = 1000      // Control tick rate
	CaptureHz    = 1000000   // Free-running capture timer rate (1us per count)
	CaptureRange = 1 << 16   // Capture timer counts per overflow
)

// Clock tracks control ticks and the capture timer overflow counter.
// Both are written from interrupt context and read from the tick.
type Clock struct {
	ticks     atomic.Uint32
	overflows atomic.Uint32
}

// Now returns the current control tick count
func (c *Clock) Now() uint32 {
	return c.ticks.Load()
}

// Advance increments the control tick count and returns the new value
func (c *Clock) Advance() uint32 {
	return c.ticks.Add(1)
}

// Set forces the tick count (for testing/hardware integration)
func (c *Clock) Set(ticks uint32) {
	c.ticks.Store(ticks)
}

// Overflow is the capture timer overflow handler
func (c *Clock) Overflow() {
	c.overflows.Add(1)
}

// Overflows returns the 8-bit software overflow counter
func (c *Clock) Overflows() uint8 {
	return uint8(c.overflows.Load())
}

// TicksFromMS converts milliseconds to control ticks
func TicksFromMS(ms uint32) uint32 {
	return ms * TickHz / 1000
}

// TicksToMS converts control ticks to milliseconds
func TicksToMS(ticks uint32) uint32 {
	return ticks * 1000 / TickHz
}

// timerIsBefore reports whether a is before b, tolerating wraparound
func timerIsBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
