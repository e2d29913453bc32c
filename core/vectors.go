package core

import "errors"

// Event identifies a peripheral interrupt source
type Event uint8

const (
	EvtEncoderX        Event = iota // Phase A rising edge, X motor
	EvtEncoderYLeft                 // Phase A rising edge, Y left motor
	EvtEncoderYRight                // Phase A rising edge, Y right motor
	EvtCaptureOverflow              // Free-running capture timer wrapped
	EvtCANRx                        // CAN controller has a received frame pending
	numEvents
)

var errBadEvent = errors.New("event out of range")

// Vectors maps peripheral events to handlers.
// Handlers run in interrupt context and must complete in bounded time.
type Vectors struct {
	handlers [numEvents]func()
	fired    [numEvents]uint32
}

// On binds fn to an event, replacing any previous handler
func (v *Vectors) On(e Event, fn func()) error {
	if e >= numEvents {
		return errBadEvent
	}
	state := disableInterrupts()
	v.handlers[e] = fn
	restoreInterrupts(state)
	return nil
}

// Fire runs the handler bound to e. Returns false when none is bound.
func (v *Vectors) Fire(e Event) bool {
	if e >= numEvents {
		return false
	}
	fn := v.handlers[e]
	if fn == nil {
		return false
	}
	v.fired[e]++
	fn()
	return true
}

// Count returns how many times e has been dispatched
func (v *Vectors) Count(e Event) uint32 {
	if e >= numEvents {
		return 0
	}
	return v.fired[e]
}

// String returns the event name
func (e Event) String() string {
	switch e {
	case EvtEncoderX:
		return "encoder_x"
	case EvtEncoderYLeft:
		return "encoder_y_left"
	case EvtEncoderYRight:
		return "encoder_y_right"
	case EvtCaptureOverflow:
		return "capture_overflow"
	case EvtCANRx:
		return "can_rx"
	}
	return "event_" + itoa(int(e))
}
