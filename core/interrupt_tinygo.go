//go:build tinygo

package core

import "runtime/interrupt"

// irqState is the saved interrupt mask
type irqState = interrupt.State

// disableInterrupts masks interrupts so encoder and CAN handlers cannot
// observe a half-written cell, returning the previous state
func disableInterrupts() irqState {
	return interrupt.Disable()
}

// restoreInterrupts restores the mask saved by disableInterrupts
func restoreInterrupts(state irqState) {
	interrupt.Restore(state)
}
