//go:build rp2040

package main

import (
	"errors"
	"machine"

	"paddle/core"
)

// Motor PWM periods are given in 1MHz timer counts
const pwmCountNs = 1000

var errPWMChannel = errors.New("pwm: channel not configured")

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmOutput is one configured bridge enable pin
type pwmOutput struct {
	slice   pwmPeripheral
	channel uint8
}

// RP2040PWMDriver implements core.PWMDriver on the RP2040's PWM slices.
// GPIO pin N belongs to slice (N>>1)&7, channel A for even pins and B for odd.
type RP2040PWMDriver struct {
	pins    map[core.PWMChannel]machine.Pin
	outputs map[core.PWMChannel]pwmOutput
}

// NewRP2040PWMDriver creates a driver for the board's motor channels
func NewRP2040PWMDriver() *RP2040PWMDriver {
	d := &RP2040PWMDriver{
		pins:    make(map[core.PWMChannel]machine.Pin),
		outputs: make(map[core.PWMChannel]pwmOutput),
	}
	for _, m := range motors {
		d.pins[m.ch] = m.pwm
	}
	return d
}

// SetPeriod implements core.PWMDriver
func (d *RP2040PWMDriver) SetPeriod(ch core.PWMChannel, ticks uint16) error {
	pin, ok := d.pins[ch]
	if !ok {
		return errPWMChannel
	}
	slice := getPWMPeripheral(uint8(pin>>1) & 0x7)

	// Channels sharing a slice share its period; the last call wins
	if err := slice.Configure(machine.PWMConfig{Period: uint64(ticks) * pwmCountNs}); err != nil {
		return err
	}
	channel, err := slice.Channel(pin)
	if err != nil {
		return err
	}
	d.outputs[ch] = pwmOutput{slice: slice, channel: channel}
	slice.Set(channel, 0)
	return nil
}

// SetDuty implements core.PWMDriver, duty 0 (off) to 100 (fully on)
func (d *RP2040PWMDriver) SetDuty(ch core.PWMChannel, duty uint8) error {
	out, ok := d.outputs[ch]
	if !ok {
		return errPWMChannel
	}
	if duty > 100 {
		duty = 100
	}
	out.slice.Set(out.channel, out.slice.Top()*uint32(duty)/100)
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
// RP2040 has 8 PWM slices: PWM0-PWM7
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
