package core

// YFault is a latched fault of the coupled Y pair
type YFault uint8

const (
	YFaultNone YFault = iota
	YFaultOverload
	YFaultLrMismatch
)

// YAxis couples two motors driving one carriage. Left is the master,
// Right follows Left's command and never runs ahead of it.
type YAxis struct {
	Left  *Axis
	Right *Axis

	LRError       int32 // Left.Position - Right.Position
	MismatchLimit int32

	LeftOverload  *OverloadDetector
	RightOverload *OverloadDetector

	fault YFault
}

// NewYAxis couples left and right
func NewYAxis(left, right *Axis, mismatchLimit int32, leftOL, rightOL *OverloadDetector) *YAxis {
	return &YAxis{
		Left:          left,
		Right:         right,
		MismatchLimit: mismatchLimit,
		LeftOverload:  leftOL,
		RightOverload: rightOL,
	}
}

// Control runs one synchronized control step
func (y *YAxis) Control() {
	y.Right.Cmd = y.Left.Cmd

	Critical(func() {
		y.LRError = y.Left.Position.Load() - y.Right.Position.Load()
	})

	if y.fault != YFaultNone {
		y.brake()
		return
	}

	if y.Left.Mode == PositionControl && abs32(y.LRError) >= y.MismatchLimit {
		y.fault = YFaultLrMismatch
		y.brake()
		return
	}

	y.Left.Control()

	err, ok := y.Right.Track()
	if !ok {
		y.Right.Control()
		return
	}
	if y.LRError < err {
		err = y.LRError
	}
	y.Right.ControlWithError(err)
}

// CheckOverload runs both motor detectors. A trip on either motor
// disables the pair. Returns true when a trip occurred.
func (y *YAxis) CheckOverload() bool {
	left := y.LeftOverload.Check(y.Left)
	right := y.RightOverload.Check(y.Right)
	if !left && !right {
		return false
	}
	if y.fault == YFaultNone {
		y.fault = YFaultOverload
	}
	y.Left.Disable()
	y.Right.Disable()
	return true
}

func (y *YAxis) brake() {
	for _, m := range [2]*Axis{y.Left, y.Right} {
		if m.Mode != Disabled {
			m.SetSpeed = 0
			m.drive.Brake()
		}
	}
}

// Fault returns the latched fault
func (y *YAxis) Fault() YFault {
	return y.fault
}

// MismatchActive reports whether the motors are currently diverged
func (y *YAxis) MismatchActive() bool {
	var lr int32
	Critical(func() {
		lr = y.Left.Position.Load() - y.Right.Position.Load()
	})
	return abs32(lr) >= y.MismatchLimit
}

// Clear releases the latched fault. Refused while its condition persists.
func (y *YAxis) Clear() bool {
	switch y.fault {
	case YFaultLrMismatch:
		if y.MismatchActive() {
			return false
		}
	case YFaultOverload:
		if y.LeftOverload.Active() || y.RightOverload.Active() {
			return false
		}
	}
	y.fault = YFaultNone
	y.Left.ClearFault()
	y.Right.ClearFault()
	y.LeftOverload.Reset()
	y.RightOverload.Reset()
	return true
}
