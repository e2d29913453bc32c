//go:build rp2040

package main

import (
	"machine"

	"paddle/config"
	"paddle/core"
)

// RPPinReader implements core.PinReader on the RP2040's GPIO block
type RPPinReader struct{}

// ReadPin implements core.PinReader
func (RPPinReader) ReadPin(pin core.Pin) bool {
	return machine.Pin(pin).Get()
}

// configureInputs sets up encoder, home switch and goal sensor inputs
func configureInputs(cfg *config.PaddleConfig) {
	for _, a := range []config.AxisConfig{cfg.X, cfg.YLeft, cfg.YRight} {
		machine.Pin(a.PhaseBPin).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		mode := machine.PinInputPullup
		if a.HomeActiveHigh {
			mode = machine.PinInputPulldown
		}
		machine.Pin(a.HomeSwitchPin).Configure(machine.PinConfig{Mode: mode})
		if a.LimitSwitchPin >= 0 {
			machine.Pin(a.LimitSwitchPin).Configure(machine.PinConfig{Mode: mode})
		}
	}
	for _, g := range []config.GoalSensorConfig{cfg.Goal.Human, cfg.Goal.Robot} {
		if g.Enabled {
			machine.Pin(g.Pin).Configure(machine.PinConfig{Mode: machine.PinInput})
		}
	}
	for _, m := range motors {
		m.phaseA.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
}

// bindEncoderInterrupts routes phase A rising edges to the controller.
// Each edge latches the capture timer before the decoder runs.
func bindEncoderInterrupts(sys *core.System, cfg *config.PaddleConfig, capture *captureTimer) error {
	axes := [3]config.AxisConfig{cfg.X, cfg.YLeft, cfg.YRight}
	for i := range motors {
		evt := motors[i].event
		ch := axes[i].CaptureChannel
		err := motors[i].phaseA.SetInterrupt(machine.PinRising, func(machine.Pin) {
			if ch >= 0 {
				capture.latch(uint8(ch))
			}
			sys.Fire(evt)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
