package core

import "testing"

func TestDutyMapCentered(t *testing.T) {
	m := DutyMap{Neutral: 50, Gain: 50, Centered: true}

	tests := []struct {
		dir   Direction
		speed uint8
		want  uint8
	}{
		{Brake, 0, 50},
		{Brake, 80, 50},
		{Forward, 100, 100},
		{Forward, 41, 70},
		{Reverse, 100, 0},
		{Reverse, 40, 30},
	}
	for _, tt := range tests {
		if got := m.Duty(tt.dir, tt.speed); got != tt.want {
			t.Errorf("Duty(%v, %d): expected %d, got %d", tt.dir, tt.speed, tt.want, got)
		}
	}
}

func TestDutyMapMagnitude(t *testing.T) {
	m := DutyMap{Neutral: 10, Gain: 90}

	if got := m.Duty(Forward, 50); got != 55 {
		t.Errorf("Expected 55, got %d", got)
	}
	if got := m.Duty(Reverse, 50); got != 55 {
		t.Errorf("Expected 55, got %d", got)
	}
	if got := m.Duty(Brake, 50); got != 0 {
		t.Errorf("Expected 0 when braking, got %d", got)
	}
	if got := m.Duty(Forward, 0); got != 0 {
		t.Errorf("Expected 0 at zero speed, got %d", got)
	}
}

func TestDriveReversalPassesThroughBrake(t *testing.T) {
	d := Drive{Map: DutyMap{Neutral: 50, Gain: 50, Centered: true}}

	d.Apply(Forward, 80)
	if d.Dir != Forward || d.Applied != 80 {
		t.Fatalf("Expected forward 80, got %v %d", d.Dir, d.Applied)
	}

	d.Apply(Reverse, 80)
	if d.Dir != Brake || d.Applied != 0 || d.Duty != 50 {
		t.Errorf("Expected one brake tick, got %v %d duty %d", d.Dir, d.Applied, d.Duty)
	}

	d.Apply(Reverse, 80)
	if d.Dir != Reverse || d.Duty != 10 {
		t.Errorf("Expected reverse duty 10, got %v duty %d", d.Dir, d.Duty)
	}
}

func TestDriveSlewLimit(t *testing.T) {
	d := Drive{Map: DutyMap{Neutral: 50, Gain: 50, Centered: true}, SlewRate: 10}

	want := []uint8{10, 20, 30, 35, 35}
	for i, w := range want {
		d.Apply(Forward, 35)
		if d.Applied != w {
			t.Errorf("Step %d: expected applied %d, got %d", i, w, d.Applied)
		}
	}

	// Decreases are immediate
	d.Apply(Forward, 5)
	if d.Applied != 5 {
		t.Errorf("Expected immediate drop to 5, got %d", d.Applied)
	}
}
