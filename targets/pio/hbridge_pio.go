//go:build rp2040

package pio

// PIO H-bridge backend using tinygo-org/pio package.
// Each motor channel gets a state machine that latches both direction
// inputs in a single OUT instruction, so IN1 and IN2 never change on
// different cycles.

import (
	"errors"
	"machine"

	"paddle/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// buildBridgeProgram creates the direction latch program using AssemblerV0
//
// Program flow:
//  1. Pull a 32-bit pattern from the FIFO (blocking)
//  2. Shift the low two bits onto IN1/IN2
func buildBridgeProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestPins, 2).Encode(), // 1: out pins, 2
		// .wrap
	}
}

var errNoStateMachine = errors.New("pio: no free state machine")

// pioChannel is one H-bridge driven by a state machine
type pioChannel struct {
	sm  rp2pio.StateMachine
	in1 machine.Pin
}

// PIOBridge implements core.BridgeDriver with PIO state machines
type PIOBridge struct {
	BrakeHigh bool

	channels map[core.PWMChannel]*pioChannel
	offsets  [2]int16 // Program offset per PIO block, -1 when not loaded
}

// NewPIOBridge creates an empty PIO bridge driver
func NewPIOBridge(brakeHigh bool) *PIOBridge {
	return &PIOBridge{
		BrakeHigh: brakeHigh,
		channels:  make(map[core.PWMChannel]*pioChannel),
		offsets:   [2]int16{-1, -1},
	}
}

// AddChannel claims a state machine for ch. IN1 is in1, IN2 is in1+1.
func (b *PIOBridge) AddChannel(ch core.PWMChannel, in1 uint8) error {
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return errNoStateMachine
	}
	block := pioBlock(pioNum)
	sm := block.StateMachine(smNum)

	// CRITICAL: Claim the state machine first!
	sm.TryClaim()

	program := buildBridgeProgram()
	if b.offsets[pioNum] < 0 {
		offset, err := block.AddProgram(program, -1)
		if err != nil {
			return err
		}
		b.offsets[pioNum] = int16(offset)
	}
	offset := uint8(b.offsets[pioNum])

	pin := machine.Pin(in1)
	pin.Configure(machine.PinConfig{Mode: block.PinMode()})
	(pin + 1).Configure(machine.PinConfig{Mode: block.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(pin, 2)
	// Shift right, autopull disabled (explicit PULL), 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	// Initialize state machine FIRST
	sm.Init(offset, cfg)

	// THEN set pin directions (must be after Init!)
	sm.SetPindirsConsecutive(pin, 2, true)
	sm.SetPinsConsecutive(pin, 2, b.BrakeHigh)
	sm.SetEnabled(true)

	b.channels[ch] = &pioChannel{sm: sm, in1: pin}
	return nil
}

// SetDirection implements core.BridgeDriver
func (b *PIOBridge) SetDirection(ch core.PWMChannel, dir core.Direction) error {
	c, ok := b.channels[ch]
	if !ok {
		return errUnknownChannel
	}
	if c.sm.IsTxFIFOFull() {
		return errFIFOFull
	}
	c.sm.TxPut(bridgeBits(dir, b.BrakeHigh))
	return nil
}

func pioBlock(n uint8) *rp2pio.PIO {
	if n == 0 {
		return rp2pio.PIO0
	}
	return rp2pio.PIO1
}
