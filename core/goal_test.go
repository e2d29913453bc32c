package core

import "testing"

func TestGoalFilter(t *testing.T) {
	pins := NewMockPins()
	g := NewGoalSensor(pins, 14, true, 3, 5)

	step := func() bool {
		g.Sample()
		return g.Filter()
	}

	pins.Set(14, true)
	if step() || step() {
		t.Fatal("Expected no goal below threshold")
	}
	if !step() {
		t.Fatal("Expected goal at threshold")
	}

	pins.Set(14, false)
	clear := 0
	for step() {
		clear++
		if clear > 50 {
			t.Fatal("Goal never released")
		}
	}
	// 7 samples keep the blocked ones in the window, then 4 latch steps
	if clear != 11 {
		t.Errorf("Expected goal held for 11 steps, got %d", clear)
	}
	if g.Blocked() {
		t.Error("Expected Blocked false after release")
	}
}

func TestGoalFilterRejectsGlitch(t *testing.T) {
	pins := NewMockPins()
	g := NewGoalSensor(pins, 14, true, 3, 5)

	for i := 0; i < 30; i++ {
		pins.Set(14, i%10 == 0)
		g.Sample()
		if g.Filter() {
			t.Fatalf("Sample %d: single-sample glitch reported as goal", i)
		}
	}
}

func TestGoalFilterWindowSpansOneStep(t *testing.T) {
	pins := NewMockPins()
	g := NewGoalSensor(pins, 14, true, 3, 5)

	// Puck crosses the beam for 3 of the 10 samples in one step
	for i := 0; i < GoalSamplesPerTick; i++ {
		pins.Set(14, i >= 4 && i < 7)
		g.Sample()
	}
	if !g.Filter() {
		t.Fatal("Expected goal from a 3-sample crossing within one step")
	}

	// Next step is all clear: the window no longer holds the crossing
	for i := 0; i < GoalSamplesPerTick; i++ {
		g.Sample()
	}
	g.Filter()
	var sum int
	for _, s := range g.samples {
		sum += int(s)
	}
	if sum != 0 {
		t.Errorf("Expected window cleared after one step of samples, got %d", sum)
	}
	if !g.Blocked() {
		t.Error("Expected goal still latched")
	}
}

func TestGoalFilterSamplesWithoutSampler(t *testing.T) {
	pins := NewMockPins()
	g := NewGoalSensor(pins, 14, true, 3, 5)

	pins.Set(14, true)
	for i := 0; i < 3; i++ {
		g.Filter()
	}
	if !g.Blocked() {
		t.Error("Expected filter to sample the pin itself when no sampler ran")
	}
}
