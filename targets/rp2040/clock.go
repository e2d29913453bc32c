//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"paddle/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// GetHardwareTime reads the low 32 bits of the 1MHz microsecond timer
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// captureTimer derives per-channel edge timestamps from the 1MHz timer.
// Its 16-bit view wraps every 65.536 ms; wraps are reported through
// EvtCaptureOverflow by pollOverflow.
type captureTimer struct {
	latched  [4]volatile.Register16
	lastHigh uint32
}

// latch stores the timer value of an edge on ch (interrupt context)
func (c *captureTimer) latch(ch uint8) {
	if int(ch) < len(c.latched) {
		c.latched[ch].Set(uint16(GetHardwareTime()))
	}
}

// Capture implements core.CaptureTimer
func (c *captureTimer) Capture(ch uint8) uint16 {
	if int(ch) >= len(c.latched) {
		return 0
	}
	return c.latched[ch].Get()
}

// pollOverflow fires one overflow event per 16-bit wrap since the last call
func (c *captureTimer) pollOverflow(sys *core.System) {
	high := GetHardwareTime() >> 16
	for c.lastHigh != high {
		c.lastHigh++
		sys.Fire(core.EvtCaptureOverflow)
	}
}
