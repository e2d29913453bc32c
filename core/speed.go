package core

// SpeedEstimator derives axis speed in mm/s from position deltas
// sampled every Interval control ticks
type SpeedEstimator struct {
	Interval    uint32
	TicksPerRev uint32
	MMPerRev    uint32

	prev int32
}

// NewSpeedEstimator creates an estimator primed with the current position
func NewSpeedEstimator(interval, ticksPerRev, mmPerRev uint32, initial int32) *SpeedEstimator {
	return &SpeedEstimator{
		Interval:    interval,
		TicksPerRev: ticksPerRev,
		MMPerRev:    mmPerRev,
		prev:        initial,
	}
}

// lowEdgeCount is the delta below which position sampling is too coarse
// and the edge period gives the better estimate
const lowEdgeCount = 4

// Sample returns the speed since the previous sample, truncated to 16 bits
func (s *SpeedEstimator) Sample(pos int32) uint16 {
	delta := pos - s.prev
	if delta < 0 {
		delta = -delta
	}
	s.prev = pos

	speed := uint32(delta) * (1000 / s.Interval) * s.MMPerRev / s.TicksPerRev
	return uint16(speed)
}

// Reset re-primes the estimator after the position is overwritten (homing)
func (s *SpeedEstimator) Reset(pos int32) {
	s.prev = pos
}

// PeriodSpeed converts an edge period in timer counts to mm/s.
// A zero period means no complete edge pair has been seen.
func (s *SpeedEstimator) PeriodSpeed(period, timerHz uint32) uint16 {
	if period == 0 {
		return 0
	}
	speed := uint64(timerHz) * uint64(s.MMPerRev) / (uint64(period) * uint64(s.TicksPerRev))
	if speed > 0xFFFF {
		return 0xFFFF
	}
	return uint16(speed)
}

// Estimate samples pos and refines slow moves with the edge period.
// period must have been measured inside the current window, 0 otherwise.
// A zero delta always reads as standstill.
func (s *SpeedEstimator) Estimate(pos int32, period, timerHz uint32) uint16 {
	delta := abs32(pos - s.prev)
	speed := s.Sample(pos)
	if delta == 0 || delta >= lowEdgeCount || period == 0 {
		return speed
	}
	return s.PeriodSpeed(period, timerHz)
}
