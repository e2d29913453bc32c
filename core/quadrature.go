package core

import "sync/atomic"

// Polarity is the wiring constant mapping the phase B level to a direction
type Polarity uint8

const (
	BHighForward Polarity = iota // Phase B high on a phase A rising edge means forward
	BHighReverse
)

// QuadDir is the last direction observed by a decoder
type QuadDir uint8

const (
	QuadInit QuadDir = iota
	QuadForward
	QuadReverse
)

// PositionCell holds an encoder position in ticks.
// The decoder is the only writer outside homing and the home switch override.
// Values saturate at [0, max] instead of wrapping.
type PositionCell struct {
	v   atomic.Int32
	max int32
}

// NewPositionCell creates a cell holding initial, clamped into [0, max]
func NewPositionCell(initial, max int32) *PositionCell {
	c := &PositionCell{max: max}
	c.Store(initial)
	return c
}

// Load returns the current position
func (c *PositionCell) Load() int32 {
	return c.v.Load()
}

// Store sets the position, clamped into [0, max]
func (c *PositionCell) Store(v int32) {
	c.v.Store(c.clamp(v))
}

// Step moves the position by delta with saturation and returns the new value
func (c *PositionCell) Step(delta int32) int32 {
	for {
		old := c.v.Load()
		next := c.clamp(old + delta)
		if c.v.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Max returns the saturation limit
func (c *PositionCell) Max() int32 {
	return c.max
}

func (c *PositionCell) clamp(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > c.max {
		return c.max
	}
	return v
}

// EdgeTimer latches capture timestamps of consecutive encoder edges.
// Slots rotate in pairs; the period is published when the second edge lands,
// together with the control tick it landed on.
type EdgeTimer struct {
	t      [2]uint16
	ovf    [2]uint8
	second bool
	period atomic.Uint32
	at     atomic.Uint32
}

// Latch records one edge timestamp taken during control tick
func (e *EdgeTimer) Latch(capture uint16, overflows uint8, tick uint32) {
	if !e.second {
		e.t[0] = capture
		e.ovf[0] = overflows
		e.second = true
		return
	}
	e.t[1] = capture
	e.ovf[1] = overflows
	e.second = false

	t1 := uint32(e.t[0]) + uint32(e.ovf[0])<<16
	t2 := uint32(e.t[1]) + uint32(e.ovf[1])<<16
	// 8-bit overflow counter plus 16-bit capture gives a 24-bit timebase
	e.at.Store(tick)
	e.period.Store((t2 - t1) & 0xFFFFFF)
}

// Period returns the last measured edge period in capture counts
func (e *EdgeTimer) Period() uint32 {
	return e.period.Load()
}

// PeriodSince returns the last period if it was published on or after
// tick, 0 otherwise
func (e *EdgeTimer) PeriodSince(tick uint32) uint32 {
	var period, at uint32
	Critical(func() {
		period = e.period.Load()
		at = e.at.Load()
	})
	if int32(at-tick) < 0 {
		return 0
	}
	return period
}

// QuadratureDecoder counts encoder ticks on phase A rising edges
type QuadratureDecoder struct {
	PhaseB   Pin
	Polarity Polarity

	pins PinReader
	pos  *PositionCell
	dir  atomic.Uint32

	timer     *EdgeTimer
	capture   CaptureTimer
	captureCh uint8
	clock     *Clock
}

// NewQuadratureDecoder creates a decoder writing into pos
func NewQuadratureDecoder(pins PinReader, phaseB Pin, polarity Polarity, pos *PositionCell) *QuadratureDecoder {
	return &QuadratureDecoder{
		PhaseB:   phaseB,
		Polarity: polarity,
		pins:     pins,
		pos:      pos,
	}
}

// AttachEdgeTimer enables edge period measurement on a capture channel
func (d *QuadratureDecoder) AttachEdgeTimer(capture CaptureTimer, ch uint8, clock *Clock) {
	d.timer = &EdgeTimer{}
	d.capture = capture
	d.captureCh = ch
	d.clock = clock
}

// OnEdge is the phase A rising edge handler (interrupt context)
func (d *QuadratureDecoder) OnEdge() {
	high := d.pins.ReadPin(d.PhaseB)
	if high == (d.Polarity == BHighForward) {
		d.dir.Store(uint32(QuadForward))
		d.pos.Step(1)
	} else {
		d.dir.Store(uint32(QuadReverse))
		d.pos.Step(-1)
	}

	if d.timer != nil {
		d.timer.Latch(d.capture.Capture(d.captureCh), d.clock.Overflows(), d.clock.Now())
	}
}

// Direction returns the last observed direction
func (d *QuadratureDecoder) Direction() QuadDir {
	return QuadDir(d.dir.Load())
}

// Position returns the cell the decoder writes
func (d *QuadratureDecoder) Position() *PositionCell {
	return d.pos
}

// Period returns the last edge period, 0 when no edge timer is attached
func (d *QuadratureDecoder) Period() uint32 {
	if d.timer == nil {
		return 0
	}
	return d.timer.Period()
}

// PeriodSince returns the edge period if one was measured on or after tick
func (d *QuadratureDecoder) PeriodSince(tick uint32) uint32 {
	if d.timer == nil {
		return 0
	}
	return d.timer.PeriodSince(tick)
}
