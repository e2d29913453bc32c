package core

// Critical runs fn with interrupts masked. Every multi-step read of state
// written from interrupt context (encoder positions, latched CAN commands)
// goes through here.
func Critical(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
