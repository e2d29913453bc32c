package core

import "testing"

// stalledAxis returns an axis driven forward at its speed limit
func stalledAxis() *Axis {
	a := newTestAxis(testParams(), 1000, nil)
	a.Cmd = 5000
	a.Control()
	return a
}

func TestOverloadStrikes(t *testing.T) {
	a := stalledAxis()
	o := &OverloadDetector{Floor: 5, StrikeLimit: 3, ClearHoldoff: 2}

	// First evaluation sees the direction change from brake
	if o.Check(a) {
		t.Fatal("Expected no trip on direction change")
	}
	if o.Strikes() != 0 {
		t.Errorf("Expected 0 strikes after direction change, got %d", o.Strikes())
	}

	a.Speed = 2
	o.Check(a)
	o.Check(a)
	if o.Strikes() != 2 {
		t.Errorf("Expected 2 strikes, got %d", o.Strikes())
	}

	// A good sample resets the count
	a.Speed = 50
	o.Check(a)
	if o.Strikes() != 0 {
		t.Errorf("Expected strikes reset, got %d", o.Strikes())
	}

	a.Speed = 0
	o.Check(a)
	o.Check(a)
	if !o.Check(a) {
		t.Fatal("Expected trip on third consecutive strike")
	}
	if a.Fault != FaultOverload || a.Mode != Disabled || a.Dir() != Brake {
		t.Errorf("Expected latched overload, got fault=%d mode=%d dir=%v", a.Fault, a.Mode, a.Dir())
	}
}

func TestOverloadIgnoresPartialSpeed(t *testing.T) {
	a := newTestAxis(testParams(), 1000, nil)
	a.Cmd = 1020 // error 20, speed 40 of 100
	a.Control()

	o := &OverloadDetector{Floor: 5, StrikeLimit: 2}
	for i := 0; i < 10; i++ {
		if o.Check(a) {
			t.Fatal("Expected no trip below max speed")
		}
	}
}

func TestOverloadDirectionChangeResets(t *testing.T) {
	a := stalledAxis()
	o := &OverloadDetector{Floor: 5, StrikeLimit: 3}

	o.Check(a)
	o.Check(a)
	o.Check(a)
	if o.Strikes() != 2 {
		t.Fatalf("Expected 2 strikes, got %d", o.Strikes())
	}

	a.Cmd = 200
	a.Control() // brake tick
	o.Check(a)
	if o.Strikes() != 0 {
		t.Errorf("Expected direction change to reset strikes, got %d", o.Strikes())
	}
}

func TestOverloadHoldoff(t *testing.T) {
	a := stalledAxis()
	o := &OverloadDetector{Floor: 5, StrikeLimit: 1, ClearHoldoff: 2}

	o.Check(a)
	if !o.Check(a) {
		t.Fatal("Expected trip")
	}
	if !o.Active() {
		t.Error("Expected condition active right after trip")
	}

	o.Check(a)
	o.Check(a)
	if o.Active() {
		t.Error("Expected holdoff to expire")
	}
}
