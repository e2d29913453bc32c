package core

// CtrlMode selects who drives an axis
type CtrlMode uint8

const (
	Disabled        CtrlMode = iota
	Manual                   // Driven directly (homing)
	PositionControl          // Closed loop on Cmd
)

// AxisFault is a latched per-axis fault
type AxisFault uint8

const (
	FaultNone AxisFault = iota
	FaultOverload
)

// Gains are the PI controller parameters. P and I terms truncate toward zero.
type Gains struct {
	P             int32
	PFactor       int32 // Divisor applied to the P term
	I             int32 // Divisor applied to the error before integration, 0 disables
	IntegralLimit int32
	SlewRate      uint8
}

// AxisParams are the fixed per-motor settings
type AxisParams struct {
	Name    string
	Source  uint8 // Event ring source code
	Channel PWMChannel

	LengthTicks   uint32
	BoundaryTicks uint32
	HomeTicks     int32

	HomeSwitch     Pin
	HomeActiveHigh bool
	LimitSwitch    Pin  // Far end, reads at the upper soft limit
	HasLimitSwitch bool

	Deadband int32
	MaxSpeed uint8 // Ceiling for every speed class

	SlowDownThreshold int32 // Ticks from a soft limit, 0 disables slow-down
	SlowDownSpeed     uint16

	Gains Gains
	Map   DutyMap
}

// Axis is one motor with its encoder and H-bridge channel
type Axis struct {
	Position *PositionCell
	Cmd      uint32 // Target position in ticks
	Error    int32  // Cmd - Position at the last control step

	Mode     CtrlMode
	Fault    AxisFault
	Speed    uint16 // Measured speed, mm/s
	SetSpeed uint8  // Controller output before slew limiting
	MaxSpeed uint8  // Active limit selected by the speed class

	params   AxisParams
	pins     PinReader
	integral int32
	drive    Drive
}

// NewAxis creates a disabled axis reading its home switch through pins
func NewAxis(params AxisParams, pos *PositionCell, pins PinReader) *Axis {
	a := &Axis{
		Position: pos,
		MaxSpeed: params.MaxSpeed,
		params:   params,
		pins:     pins,
		drive: Drive{
			Map:      params.Map,
			SlewRate: params.Gains.SlewRate,
		},
	}
	a.Cmd = uint32(pos.Load())
	a.drive.Brake()
	return a
}

// Name returns the axis name
func (a *Axis) Name() string { return a.params.Name }

// Params returns the axis settings
func (a *Axis) Params() AxisParams { return a.params }

// Dir returns the direction currently on the bridge
func (a *Axis) Dir() Direction { return a.drive.Dir }

// Applied returns the speed currently applied after slew limiting
func (a *Axis) Applied() uint8 { return a.drive.Applied }

// Duty returns the PWM duty currently applied
func (a *Axis) Duty() uint8 { return a.drive.Duty }

// Integral returns the integrator state
func (a *Axis) Integral() int32 { return a.integral }

// SoftLimits returns the reachable command range [lo, hi]
func (a *Axis) SoftLimits() (lo, hi uint32) {
	return a.params.BoundaryTicks, a.params.LengthTicks - a.params.BoundaryTicks
}

// SetMaxSpeed selects the active speed limit, capped at the configured ceiling
func (a *Axis) SetMaxSpeed(speed uint8) {
	if speed > a.params.MaxSpeed {
		speed = a.params.MaxSpeed
	}
	a.MaxSpeed = speed
}

// HomePressed reports whether the home switch is asserted
func (a *Axis) HomePressed() bool {
	if a.pins == nil {
		return false
	}
	return a.pins.ReadPin(a.params.HomeSwitch) == a.params.HomeActiveHigh
}

// LimitPressed reports whether the far-end limit switch is asserted
func (a *Axis) LimitPressed() bool {
	if a.pins == nil || !a.params.HasLimitSwitch {
		return false
	}
	return a.pins.ReadPin(a.params.LimitSwitch) == a.params.HomeActiveHigh
}

// Control runs one position control step
func (a *Axis) Control() {
	err, ok := a.Track()
	if !ok {
		if a.Mode == Disabled {
			a.SetSpeed = 0
			a.drive.Brake()
		}
		// Manual axes are driven by the homing sequencer
		return
	}
	a.ControlWithError(err)
}

// Track clamps the command, applies the switch overrides and computes
// the position error. Returns false when the axis is not under position control.
func (a *Axis) Track() (int32, bool) {
	if a.Mode != PositionControl {
		return 0, false
	}

	lo, hi := a.SoftLimits()
	if a.Cmd < lo {
		a.Cmd = lo
	} else if a.Cmd > hi {
		a.Cmd = hi
	}

	if a.HomePressed() {
		Critical(func() {
			a.Position.Store(a.params.HomeTicks)
		})
	}
	if a.LimitPressed() {
		Critical(func() {
			a.Position.Store(int32(hi))
		})
	}

	Critical(func() {
		a.Error = int32(a.Cmd) - a.Position.Load()
	})
	return a.Error, true
}

// ControlWithError runs the PI controller and drive against err
func (a *Axis) ControlWithError(err int32) {
	if abs32(err) <= a.params.Deadband {
		a.integral = 0
		a.SetSpeed = 0
		a.drive.Brake()
		return
	}

	g := a.params.Gains
	if g.I != 0 {
		a.integral += err / g.I
		if a.integral > g.IntegralLimit {
			a.integral = g.IntegralLimit
		} else if a.integral < -g.IntegralLimit {
			a.integral = -g.IntegralLimit
		}
	}

	calc := a.integral + err*g.P/g.PFactor
	calc = a.slowDown(calc)

	var dir Direction
	switch {
	case calc > 0:
		dir = Forward
	case calc < 0:
		dir = Reverse
		calc = -calc
	default:
		a.SetSpeed = 0
		a.drive.Brake()
		return
	}

	if calc > int32(a.MaxSpeed) {
		calc = int32(a.MaxSpeed)
	}
	a.SetSpeed = uint8(calc)
	a.drive.Apply(dir, a.SetSpeed)
}

// slowDown replaces calc with a reduced value while the axis runs into
// a soft limit faster than SlowDownSpeed
func (a *Axis) slowDown(calc int32) int32 {
	th := a.params.SlowDownThreshold
	if th <= 0 {
		return calc
	}

	lo, hi := a.SoftLimits()
	pos := a.Position.Load()
	speed := int32(a.Speed)
	slow := int32(a.params.SlowDownSpeed)
	if speed <= slow {
		return calc
	}

	switch {
	case pos < int32(lo)+th && a.drive.Dir == Reverse && calc < 0:
		return (slow - speed) / 10
	case pos > int32(hi)-th && a.drive.Dir == Forward && calc > 0:
		return (speed - slow) / 10
	}
	return calc
}

// Manual drives the axis directly. Only valid in Manual mode.
func (a *Axis) Manual(dir Direction, speed uint8) {
	if a.Mode != Manual {
		return
	}
	if dir == Brake {
		speed = 0
	}
	a.SetSpeed = speed
	a.drive.Apply(dir, speed)
}

// Enable puts the axis under position control. Refused while a fault is latched.
func (a *Axis) Enable() bool {
	if a.Fault != FaultNone {
		return false
	}
	if a.Mode != PositionControl {
		a.integral = 0
		a.Mode = PositionControl
	}
	return true
}

// Disable brakes the axis and drops it out of control
func (a *Axis) Disable() {
	a.Mode = Disabled
	a.integral = 0
	a.SetSpeed = 0
	a.drive.Brake()
}

// SetFault latches f, brakes and disables the axis
func (a *Axis) SetFault(f AxisFault) {
	a.Fault = f
	a.Disable()
}

// ClearFault releases a latched fault. The axis stays disabled until enabled.
func (a *Axis) ClearFault() {
	a.Fault = FaultNone
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
