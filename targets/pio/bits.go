package pio

import "paddle/core"

// Direction pin patterns. Bit 0 drives IN1, bit 1 drives IN2.
const (
	bitsCoast   uint32 = 0b00
	bitsForward uint32 = 0b01
	bitsReverse uint32 = 0b10
	bitsBrake   uint32 = 0b11
)

// bridgeBits returns the IN1/IN2 pattern for dir. Brake shorts the
// motor through the high side when brakeHigh is set, otherwise both
// inputs go low.
func bridgeBits(dir core.Direction, brakeHigh bool) uint32 {
	switch dir {
	case core.Forward:
		return bitsForward
	case core.Reverse:
		return bitsReverse
	}
	if brakeHigh {
		return bitsBrake
	}
	return bitsCoast
}
