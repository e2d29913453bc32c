//go:build rp2040

package main

import (
	_ "embed"
	"machine"
	"time"

	"paddle/config"
	"paddle/core"
	"paddle/targets/pio"
)

//go:embed paddle.json
var boardConfig []byte

var (
	capture captureTimer
	canBus  *mcpCAN

	// Debug counters
	loopPanics uint32
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	// This prevents issues with watchdog persisting across resets
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	initDebug(true)

	cfg, err := config.LoadConfig(boardConfig)
	if err != nil {
		core.DebugPrintln("[BOOT] config: " + err.Error() + ", using defaults")
		cfg = config.DefaultPaddleConfig()
	}

	configureInputs(cfg)
	capture.lastHigh = GetHardwareTime() >> 16

	canBus, err = newMCPCAN(cfg.CAN.Bitrate)
	if err != nil {
		halt("[BOOT] can: " + err.Error())
	}

	sys, err := core.NewSystem(cfg, core.Hardware{
		Pins:    RPPinReader{},
		PWM:     NewRP2040PWMDriver(),
		Bridge:  newBridge(),
		Capture: &capture,
		CAN:     canBus,
	})
	if err != nil {
		halt("[BOOT] system: " + err.Error())
	}

	if err := bindEncoderInterrupts(sys, cfg, &capture); err != nil {
		halt("[BOOT] encoder irq: " + err.Error())
	}
	if err := canBus.bindInterrupt(sys); err != nil {
		halt("[BOOT] can irq: " + err.Error())
	}

	// The loop runs at the goal sampling rate; every GoalSamplesPerTick-th
	// pass is a control tick
	ticker := time.NewTicker(time.Second / (core.TickHz * core.GoalSamplesPerTick))
	var passes, loops uint32
	for range ticker.C {
		sys.SampleGoals()
		passes++
		if passes < core.GoalSamplesPerTick {
			continue
		}
		passes = 0

		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
				}
			}()

			capture.pollOverflow(sys)
			canBus.poll(sys)
			sys.Tick()
		}()

		loops++
		if loops%statsEveryTicks == 0 {
			dumpStats(sys)
		}
	}
}

// statsEveryTicks is the debug counter dump interval
const statsEveryTicks = 5 * core.TickHz

// dumpStats prints link and loop counters over the debug console
func dumpStats(sys *core.System) {
	if !core.IsDebugEnabled() {
		return
	}
	core.DebugPrintln("[STATS] rx=" + utoa(canBus.rxFrames) +
		" rxerr=" + utoa(canBus.rxErrors) +
		" txerr=" + utoa(canBus.txErrors) +
		" panics=" + utoa(loopPanics) +
		" outfail=" + utoa(sys.OutputFailures()) +
		" state=" + sys.Supervisor().State().String() +
		" err=" + sys.Supervisor().Error().String())
}

// newBridge drives the bridges from PIO, falling back to direct GPIO
// writes when no state machine can be claimed
func newBridge() core.BridgeDriver {
	b := pio.NewPIOBridge(brakeHigh)
	ok := true
	for _, m := range motors {
		if err := b.AddChannel(m.ch, m.in1); err != nil {
			core.DebugPrintln("[BOOT] pio bridge: " + err.Error())
			ok = false
			break
		}
	}
	if ok {
		return b
	}

	g := pio.NewGPIOBridge(brakeHigh)
	for _, m := range motors {
		if err := g.AddChannel(m.ch, m.in1); err != nil {
			halt("[BOOT] gpio bridge: " + err.Error())
		}
	}
	return g
}

// halt reports a fatal boot error forever
func halt(msg string) {
	for {
		core.DebugPrintln(msg)
		time.Sleep(time.Second)
	}
}
