package core

// OverloadDetector flags a motor that stays below a speed floor while
// driven at its full speed limit
type OverloadDetector struct {
	Floor        uint16 // mm/s
	StrikeLimit  uint16 // Consecutive evaluations below Floor before tripping
	ClearHoldoff uint16 // Evaluations after a trip during which the fault cannot be cleared

	strikes uint16
	lastDir Direction
	holdoff uint16
}

// Check evaluates one sample and trips the axis fault when the strike
// limit is reached. Returns true on the evaluation that trips.
func (o *OverloadDetector) Check(a *Axis) bool {
	if a.Fault != FaultNone {
		if o.holdoff > 0 {
			o.holdoff--
		}
		return false
	}

	dir := a.Dir()
	if dir != o.lastDir {
		// Reversals and starts legitimately pass through low speed
		o.strikes = 0
		o.lastDir = dir
		return false
	}

	if a.SetSpeed > 0 && a.SetSpeed == a.MaxSpeed {
		if a.Speed < o.Floor {
			o.strikes++
		} else {
			o.strikes = 0
		}
	}

	if o.strikes >= o.StrikeLimit {
		a.SetFault(FaultOverload)
		o.strikes = 0
		o.holdoff = o.ClearHoldoff
		return true
	}
	return false
}

// Strikes returns the current consecutive strike count
func (o *OverloadDetector) Strikes() uint16 {
	return o.strikes
}

// Active reports whether the overload condition still holds
func (o *OverloadDetector) Active() bool {
	return o.holdoff > 0
}

// Reset clears the strike state
func (o *OverloadDetector) Reset() {
	o.strikes = 0
	o.lastDir = Brake
	o.holdoff = 0
}
