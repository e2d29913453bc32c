package sim

import (
	"math"
	"testing"
	"time"

	"paddle/config"
	"paddle/core"
)

func TestPlantEncoderEdges(t *testing.T) {
	cfg := config.DefaultPaddleConfig()
	p := NewPlant(cfg, DefaultModel())

	var up, down int
	p.Attach(func(e core.Event) bool {
		if e != core.EvtEncoderX {
			return true
		}
		// X counts up while phase B is low
		if p.ReadPin(core.Pin(cfg.X.PhaseBPin)) {
			down++
		} else {
			up++
		}
		return true
	})

	start := p.motors[core.MotorX].pos
	p.SetDirection(core.PWMChannel(cfg.X.PWMChannel), core.Forward)
	p.SetDuty(core.PWMChannel(cfg.X.PWMChannel), 100)
	for i := 0; i < 50; i++ {
		p.Step(time.Millisecond)
	}

	end := p.motors[core.MotorX].pos
	if end <= start {
		t.Fatalf("Expected carriage to move forward, %f -> %f", start, end)
	}
	want := int(math.Floor(end) - math.Floor(start))
	if up != want || down != 0 {
		t.Errorf("Expected %d up edges and 0 down, got %d/%d", want, up, down)
	}
}

func TestPlantDriveFraction(t *testing.T) {
	cfg := config.DefaultPaddleConfig()
	p := NewPlant(cfg, DefaultModel())
	m := p.motors[core.MotorYLeft]

	tests := []struct {
		dir  core.Direction
		duty uint8
		want float64
	}{
		{core.Brake, 80, 0},
		{core.Forward, 75, 0.5},
		{core.Reverse, 25, -0.5},
		{core.Forward, 100, 1},
	}
	for _, tt := range tests {
		m.dir, m.duty = tt.dir, tt.duty
		if got := m.drive(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s at %d: expected %f, got %f", tt.dir, tt.duty, tt.want, got)
		}
	}
}

func TestPlantHomeSwitch(t *testing.T) {
	cfg := config.DefaultPaddleConfig()
	p := NewPlant(cfg, DefaultModel())
	home := core.Pin(cfg.X.HomeSwitchPin)

	if p.ReadPin(home) {
		t.Error("Expected home switch released at start")
	}
	p.Push(core.MotorX, -20)
	if !p.ReadPin(home) {
		t.Error("Expected home switch pressed past zero")
	}
}

func TestPlantLimitSwitch(t *testing.T) {
	cfg := config.DefaultPaddleConfig()
	p := NewPlant(cfg, DefaultModel())
	limit := core.Pin(cfg.X.LimitSwitchPin)

	if p.ReadPin(limit) {
		t.Error("Expected far limit switch released at start")
	}
	p.Push(core.MotorX, 150)
	if !p.ReadPin(limit) {
		t.Error("Expected far limit switch pressed at the end of travel")
	}
}

func TestPlantHardStop(t *testing.T) {
	cfg := config.DefaultPaddleConfig()
	p := NewPlant(cfg, DefaultModel())
	ch := core.PWMChannel(cfg.YRight.PWMChannel)

	p.SetDirection(ch, core.Reverse)
	p.SetDuty(ch, 0)
	for i := 0; i < 500; i++ {
		p.Step(time.Millisecond)
	}
	if got := p.PositionMM(core.MotorYRight); math.Abs(got+DefaultModel().HardStopMM) > 1e-6 {
		t.Errorf("Expected carriage at the hard stop, got %f mm", got)
	}
}

func TestPlantGoalPulse(t *testing.T) {
	cfg := config.DefaultPaddleConfig()
	p := NewPlant(cfg, DefaultModel())
	g := cfg.Goal.Human
	pin := core.Pin(g.Pin)

	p.Goal(g, 5*time.Millisecond)
	if p.ReadPin(pin) != g.BlockedHigh {
		t.Error("Expected beam blocked")
	}
	for i := 0; i < 10; i++ {
		p.Step(time.Millisecond)
	}
	if p.ReadPin(pin) == g.BlockedHigh {
		t.Error("Expected beam restored")
	}
}

func TestCaptureWraps(t *testing.T) {
	wrap := float64(core.CaptureRange) / core.CaptureHz
	if got := captureWraps(0, wrap/2); len(got) != 0 {
		t.Errorf("Expected no wraps, got %d", len(got))
	}
	if got := captureWraps(wrap-0.001, wrap+0.001); len(got) != 1 {
		t.Errorf("Expected 1 wrap, got %d", len(got))
	}
}

func TestPlantUnknownChannel(t *testing.T) {
	p := NewPlant(config.DefaultPaddleConfig(), DefaultModel())
	if err := p.SetDuty(9, 10); err == nil {
		t.Error("Expected error for unknown channel")
	}
}
