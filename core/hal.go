package core

// Pin identifies a digital input (encoder phase, home switch, goal sensor)
type Pin uint32

// PWMChannel identifies a motor PWM output channel
type PWMChannel uint8

// PinReader reads raw pin levels.
// Platform-specific implementations handle actual hardware access.
type PinReader interface {
	// ReadPin returns true when the pin is high
	ReadPin(pin Pin) bool
}

// PWMDriver is the abstract PWM interface that core code uses.
type PWMDriver interface {
	// SetPeriod sets the PWM period in timer counts
	SetPeriod(ch PWMChannel, ticks uint16) error

	// SetDuty sets the duty cycle, 0 (fully off) to 100 (fully on)
	SetDuty(ch PWMChannel, duty uint8) error
}

// BridgeDriver sets the H-bridge direction lines of a motor channel
type BridgeDriver interface {
	SetDirection(ch PWMChannel, dir Direction) error
}

// CaptureTimer exposes the free-running edge capture counter
type CaptureTimer interface {
	// Capture returns the counter value latched at the last edge on ch
	Capture(ch uint8) uint16
}

// TxResult is the outcome of a CAN transmit request
type TxResult uint8

const (
	TxOK         TxResult = 0
	TxBufferFull TxResult = 1
	TxTimeout    TxResult = 2
)

// CANDriver transmits CAN frames
type CANDriver interface {
	Transmit(id uint32, data []byte) TxResult
}

// Hardware bundles the drivers a System runs against
type Hardware struct {
	Pins    PinReader
	PWM     PWMDriver
	Bridge  BridgeDriver
	Capture CaptureTimer // optional, enables period-based speed
	CAN     CANDriver
}

// validate checks that the required drivers are present
func (hw Hardware) validate() error {
	switch {
	case hw.Pins == nil:
		return errMissingDriver("pins")
	case hw.PWM == nil:
		return errMissingDriver("pwm")
	case hw.Bridge == nil:
		return errMissingDriver("bridge")
	case hw.CAN == nil:
		return errMissingDriver("can")
	}
	return nil
}
