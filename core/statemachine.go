package core

// State is the supervisory state. Values are the wire codes.
type State uint8

const (
	StateOff State = iota
	StateCalibration
	StateOn
	StateError
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateCalibration:
		return "calibration"
	case StateOn:
		return "on"
	case StateError:
		return "error"
	}
	return "state_" + itoa(int(s))
}

// StateCmd is a state change requested by the master controller
type StateCmd uint8

const (
	CmdOff StateCmd = iota
	CmdCalibration
	CmdOn
	CmdClearError
)

// String returns the command name
func (c StateCmd) String() string {
	switch c {
	case CmdOff:
		return "off"
	case CmdCalibration:
		return "calibration"
	case CmdOn:
		return "on"
	case CmdClearError:
		return "clear_error"
	}
	return "cmd_" + itoa(int(c))
}

// SystemError is the flat, latched system error. Values are the wire codes.
type SystemError uint8

const (
	ErrNone SystemError = iota
	ErrYOverload
	ErrXOverload
	ErrCANBufferFull
	ErrCANTx
	ErrYLrMismatch
	ErrHomingFailed
)

// String returns the error name
func (e SystemError) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrYOverload:
		return "y_overload"
	case ErrXOverload:
		return "x_overload"
	case ErrCANBufferFull:
		return "can_buffer_full"
	case ErrCANTx:
		return "can_tx"
	case ErrYLrMismatch:
		return "y_lr_mismatch"
	case ErrHomingFailed:
		return "homing_failed"
	}
	return "error_" + itoa(int(e))
}

// Supervisor sequences the system through Off, Calibration, On and Error
// and arbitrates the error sources
type Supervisor struct {
	X         *Axis
	XOverload *OverloadDetector
	Y         *YAxis
	Homing    *Homing
	Bridge    *Bridge

	// SendNow transmits a status frame immediately (state entry)
	SendNow func()

	events *EventRing
	clock  *Clock

	state        State
	cmd          StateCmd
	err          SystemError
	homingFailed bool
	homingStages [2][]*Axis
}

// NewSupervisor creates a supervisor in the Off state
func NewSupervisor(x *Axis, xOverload *OverloadDetector, y *YAxis, homing *Homing, bridge *Bridge, events *EventRing, clock *Clock) *Supervisor {
	s := &Supervisor{
		X:         x,
		XOverload: xOverload,
		Y:         y,
		Homing:    homing,
		Bridge:    bridge,
		events:    events,
		clock:     clock,
	}
	// Y homes first, then X
	s.homingStages = [2][]*Axis{{y.Left, y.Right}, {x}}
	return s
}

// State returns the current state
func (s *Supervisor) State() State { return s.state }

// Command returns the pending state command
func (s *Supervisor) Command() StateCmd { return s.cmd }

// Error returns the latched system error
func (s *Supervisor) Error() SystemError { return s.err }

// SetCommand records the master's requested state change
func (s *Supervisor) SetCommand(cmd StateCmd) {
	s.cmd = cmd
}

// Step runs error arbitration and one state transition evaluation
func (s *Supervisor) Step() {
	s.arbitrate()

	if s.err != ErrNone && s.state != StateError {
		s.enter(StateError)
		return
	}

	switch s.state {
	case StateOff:
		if s.cmd == CmdOn || s.cmd == CmdCalibration {
			s.enter(StateCalibration)
		}

	case StateCalibration:
		if s.cmd == CmdOff {
			s.enter(StateOff)
			return
		}
		before := s.Homing.Phase()
		phase := s.Homing.Tick()
		if phase != before {
			s.record(RecHoming, SrcSystem, int32(phase), int32(s.Homing.Stage()))
		}
		switch phase {
		case HomingZeroed:
			s.Homing.Reset()
			s.cmd = CmdOn
			s.enter(StateOn)
		case HomingFailed:
			s.homingFailed = true
			s.latch(ErrHomingFailed)
			s.enter(StateError)
		}

	case StateOn:
		switch s.cmd {
		case CmdOff:
			s.enter(StateOff)
		case CmdCalibration:
			s.enter(StateCalibration)
		}

	case StateError:
		if s.err == ErrNone && s.cmd == CmdClearError {
			// The clear is consumed; the master must request On again
			s.cmd = CmdOff
			s.enter(StateOff)
		}
	}
}

// arbitrate latches the highest priority pending error unless one is
// already latched. A ClearError command first releases every source
// whose condition has resolved; a source that still holds re-latches.
func (s *Supervisor) arbitrate() {
	prev := s.err
	if prev != ErrNone {
		if s.cmd != CmdClearError {
			return
		}
		s.clearSources()
		s.err = ErrNone
	}

	next := s.pending()
	switch {
	case next == ErrNone:
		if prev != ErrNone {
			s.record(RecErrorClear, SrcSystem, int32(prev), 0)
			DebugPrintln("[STATE] errors cleared")
		}
	case next == prev:
		s.err = next
	default:
		s.latch(next)
	}
}

// pending returns the highest priority error source: CAN, homing, Y, X
func (s *Supervisor) pending() SystemError {
	switch {
	case s.Bridge.Error() != ErrNone:
		return s.Bridge.Error()
	case s.homingFailed:
		return ErrHomingFailed
	case s.Y.Fault() == YFaultOverload:
		return ErrYOverload
	case s.Y.Fault() == YFaultLrMismatch:
		return ErrYLrMismatch
	case s.X.Fault == FaultOverload:
		return ErrXOverload
	}
	return ErrNone
}

func (s *Supervisor) clearSources() {
	s.Bridge.ClearError()

	s.homingFailed = false
	s.Homing.Reset()

	s.Y.Clear()

	if s.X.Fault != FaultNone && !s.XOverload.Active() {
		s.X.ClearFault()
		s.XOverload.Reset()
	}
}

func (s *Supervisor) latch(err SystemError) {
	if s.err != ErrNone {
		return
	}
	s.err = err
	s.record(RecErrorLatch, SrcSystem, int32(err), 0)
	DebugPrintln("[STATE] error latched: " + err.String())
}

// enter switches state and runs the entry actions
func (s *Supervisor) enter(st State) {
	s.state = st

	switch st {
	case StateOff, StateError:
		s.Homing.Abort()
		s.X.Disable()
		s.Y.Left.Disable()
		s.Y.Right.Disable()
	case StateCalibration:
		s.enableAll()
		s.Homing.Start(s.homingStages[0], s.homingStages[1])
	case StateOn:
		s.enableAll()
	}

	s.record(RecStateEnter, SrcSystem, int32(st), int32(s.err))
	DebugPrintln("[STATE] enter " + st.String())

	if s.SendNow != nil {
		s.SendNow()
	}
}

func (s *Supervisor) enableAll() {
	s.X.Enable()
	s.Y.Left.Enable()
	s.Y.Right.Enable()
}

func (s *Supervisor) record(kind, source uint8, v1, v2 int32) {
	if s.events == nil {
		return
	}
	var now uint32
	if s.clock != nil {
		now = s.clock.Now()
	}
	s.events.Record(kind, source, now, v1, v2)
}
