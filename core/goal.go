package core

// goalWindow is the number of samples summed by the goal filter
const goalWindow = 10

// GoalSamplesPerTick is the sampling rate of the goal pins relative to the
// control tick, so one filter window spans one tick
const GoalSamplesPerTick = goalWindow

// GoalSensor debounces an IR beam across a goal mouth. A goal is reported
// when Threshold of the last goalWindow samples saw the beam blocked and
// stays reported for LatchTicks filter steps.
type GoalSensor struct {
	Pin         Pin
	BlockedHigh bool
	Threshold   uint8
	LatchTicks  uint8

	pins    PinReader
	samples [goalWindow]uint8
	idx     uint8
	fresh   uint8 // Samples since the last filter step
	latch   uint8
	blocked bool
}

// NewGoalSensor creates a goal filter on pin
func NewGoalSensor(pins PinReader, pin Pin, blockedHigh bool, threshold, latchTicks uint8) *GoalSensor {
	return &GoalSensor{
		Pin:         pin,
		BlockedHigh: blockedHigh,
		Threshold:   threshold,
		LatchTicks:  latchTicks,
		pins:        pins,
	}
}

// Sample reads the sensor into the sample ring (sampling timer context)
func (g *GoalSensor) Sample() {
	var v uint8
	if g.pins.ReadPin(g.Pin) == g.BlockedHigh {
		v = 1
	}
	state := disableInterrupts()
	g.samples[g.idx] = v
	g.idx = (g.idx + 1) % goalWindow
	if g.fresh < 0xFF {
		g.fresh++
	}
	restoreInterrupts(state)
}

// Filter sums the ring and updates the latched output.
// With no sampler running it takes one sample itself.
func (g *GoalSensor) Filter() bool {
	if g.fresh == 0 {
		g.Sample()
	}

	var sum uint8
	Critical(func() {
		for _, s := range g.samples {
			sum += s
		}
		g.fresh = 0
	})

	if sum >= g.Threshold {
		g.latch = g.LatchTicks
	} else if g.latch > 0 {
		g.latch--
	}
	g.blocked = g.latch > 0
	return g.blocked
}

// Blocked returns the filtered output
func (g *GoalSensor) Blocked() bool {
	return g.blocked
}
