package core

import "testing"

func TestDecoderRoundTrip(t *testing.T) {
	pins := NewMockPins()
	pos := NewPositionCell(1000, 0xFFFF)
	dec := NewQuadratureDecoder(pins, 3, BHighForward, pos)

	pins.Set(3, true)
	for i := 0; i < 250; i++ {
		dec.OnEdge()
	}
	if dec.Direction() != QuadForward {
		t.Errorf("Expected forward, got %d", dec.Direction())
	}

	pins.Set(3, false)
	for i := 0; i < 90; i++ {
		dec.OnEdge()
	}
	if dec.Direction() != QuadReverse {
		t.Errorf("Expected reverse, got %d", dec.Direction())
	}

	if got := pos.Load(); got != 1000+250-90 {
		t.Errorf("Expected position %d, got %d", 1000+250-90, got)
	}
}

func TestDecoderPolarity(t *testing.T) {
	pins := NewMockPins()
	pos := NewPositionCell(100, 0xFFFF)
	dec := NewQuadratureDecoder(pins, 3, BHighReverse, pos)

	pins.Set(3, true)
	dec.OnEdge()
	if pos.Load() != 99 {
		t.Errorf("Expected B high to count down, got %d", pos.Load())
	}
	pins.Set(3, false)
	dec.OnEdge()
	dec.OnEdge()
	if pos.Load() != 101 {
		t.Errorf("Expected B low to count up, got %d", pos.Load())
	}
}

func TestPositionCellSaturates(t *testing.T) {
	c := NewPositionCell(2, 10)
	for i := 0; i < 5; i++ {
		c.Step(-1)
	}
	if c.Load() != 0 {
		t.Errorf("Expected saturation at 0, got %d", c.Load())
	}

	for i := 0; i < 20; i++ {
		c.Step(1)
	}
	if c.Load() != 10 {
		t.Errorf("Expected saturation at 10, got %d", c.Load())
	}

	c.Store(-5)
	if c.Load() != 0 {
		t.Errorf("Expected Store to clamp to 0, got %d", c.Load())
	}
	if NewPositionCell(50, 10).Load() != 10 {
		t.Error("Expected initial value clamped to max")
	}
}

func TestEdgeTimerPeriod(t *testing.T) {
	var e EdgeTimer

	e.Latch(1000, 0, 0)
	if e.Period() != 0 {
		t.Errorf("Expected no period after one edge, got %d", e.Period())
	}
	e.Latch(1500, 0, 0)
	if e.Period() != 500 {
		t.Errorf("Expected period 500, got %d", e.Period())
	}

	// Capture counter wrapped once between edges
	e.Latch(65000, 3, 0)
	e.Latch(200, 4, 0)
	if want := uint32(65536 - 65000 + 200); e.Period() != want {
		t.Errorf("Expected period %d, got %d", want, e.Period())
	}

	// 8-bit overflow counter wrapped between edges
	e.Latch(100, 255, 0)
	e.Latch(100, 0, 0)
	if e.Period() != 65536 {
		t.Errorf("Expected period 65536 across counter wrap, got %d", e.Period())
	}
}

func TestDecoderEdgeTimer(t *testing.T) {
	pins := NewMockPins()
	capture := &MockCapture{}
	var clock Clock
	dec := NewQuadratureDecoder(pins, 3, BHighForward, NewPositionCell(0, 100))

	if dec.Period() != 0 {
		t.Error("Expected zero period without edge timer")
	}

	dec.AttachEdgeTimer(capture, 1, &clock)
	capture.values[1] = 100
	dec.OnEdge()
	capture.values[1] = 40
	clock.Overflow()
	dec.OnEdge()

	if want := uint32(65536 + 40 - 100); dec.Period() != want {
		t.Errorf("Expected period %d, got %d", want, dec.Period())
	}
}

func TestDecoderPeriodSince(t *testing.T) {
	pins := NewMockPins()
	capture := &MockCapture{}
	var clock Clock
	dec := NewQuadratureDecoder(pins, 3, BHighForward, NewPositionCell(0, 100))
	dec.AttachEdgeTimer(capture, 0, &clock)

	clock.Set(5)
	capture.values[0] = 0
	dec.OnEdge()
	capture.values[0] = 100
	dec.OnEdge()

	if got := dec.PeriodSince(5); got != 100 {
		t.Errorf("Expected period 100 measured at tick 5, got %d", got)
	}
	if got := dec.PeriodSince(6); got != 0 {
		t.Errorf("Expected period from tick 5 to be stale at tick 6, got %d", got)
	}

	// A single edge later on does not publish a new period
	clock.Set(25)
	capture.values[0] = 5000
	dec.OnEdge()
	if got := dec.PeriodSince(20); got != 0 {
		t.Errorf("Expected no period in window starting at 20, got %d", got)
	}
}
