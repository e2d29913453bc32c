//go:build rp2040 || rp2350

package pio

import (
	"device/rp"
	"machine"

	"paddle/core"
)

// gpioChannel holds the SIO masks of one bridge's IN1/IN2 pins
type gpioChannel struct {
	mask uint32 // IN1 | IN2
	in1  uint32
	in2  uint32
}

// GPIOBridge implements core.BridgeDriver with direct SIO writes.
// This is the fallback when no PIO state machine is free.
type GPIOBridge struct {
	BrakeHigh bool

	channels map[core.PWMChannel]gpioChannel
}

// NewGPIOBridge creates an empty GPIO bridge driver
func NewGPIOBridge(brakeHigh bool) *GPIOBridge {
	return &GPIOBridge{
		BrakeHigh: brakeHigh,
		channels:  make(map[core.PWMChannel]gpioChannel),
	}
}

// AddChannel configures in1 and in1+1 as the bridge inputs of ch
func (b *GPIOBridge) AddChannel(ch core.PWMChannel, in1 uint8) error {
	for _, p := range []machine.Pin{machine.Pin(in1), machine.Pin(in1 + 1)} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	c := gpioChannel{
		in1: 1 << in1,
		in2: 1 << (in1 + 1),
	}
	c.mask = c.in1 | c.in2
	b.channels[ch] = c
	return b.SetDirection(ch, core.Brake)
}

// SetDirection implements core.BridgeDriver. Clear goes first so the
// bridge passes through coast, never through both-high, on a change.
func (b *GPIOBridge) SetDirection(ch core.PWMChannel, dir core.Direction) error {
	c, ok := b.channels[ch]
	if !ok {
		return errUnknownChannel
	}
	var set uint32
	bits := bridgeBits(dir, b.BrakeHigh)
	if bits&0b01 != 0 {
		set |= c.in1
	}
	if bits&0b10 != 0 {
		set |= c.in2
	}
	rp.SIO.GPIO_OUT_CLR.Set(c.mask &^ set)
	rp.SIO.GPIO_OUT_SET.Set(set)
	return nil
}
