package core

import (
	"errors"

	"paddle/protocol"
)

// Scale converts between wire millimetres and encoder ticks
type Scale struct {
	TicksPerRev uint32
	MMPerRev    uint32
	OffsetMM    uint32 // Home offset plus paddle radius
}

// ToTicks converts a commanded paddle-centre position to ticks, clamped at 0
func (s Scale) ToTicks(mm uint16) uint32 {
	if uint32(mm) <= s.OffsetMM {
		return 0
	}
	return (uint32(mm) - s.OffsetMM) * s.TicksPerRev / s.MMPerRev
}

// ToMM converts a position in ticks to the paddle-centre position, 16 bits
func (s Scale) ToMM(ticks int32) uint16 {
	if ticks < 0 {
		ticks = 0
	}
	mm := uint32(ticks)*10*s.MMPerRev/s.TicksPerRev/10 + s.OffsetMM
	return uint16(mm)
}

// PendingCommand is a decoded command frame waiting for the next tick
type PendingCommand struct {
	XTicks uint32
	YTicks uint32
	XClass uint8
	YClass uint8
	State  StateCmd
}

// Bridge moves commands and status between the CAN controller and the tick
type Bridge struct {
	XScale Scale
	YScale Scale

	can     CANDriver
	pending PendingCommand
	fresh   bool
	buf     [protocol.FrameDataMax]byte

	err        SystemError
	lastResult TxResult

	received   uint32
	sent       uint32
	failed     uint32
	suppressed uint32
}

// NewBridge creates a bridge transmitting through can
func NewBridge(can CANDriver, x, y Scale) *Bridge {
	return &Bridge{
		XScale: x,
		YScale: y,
		can:    can,
	}
}

// HandleCommand decodes a command frame payload and latches it whole.
// Runs in CAN receive context.
func (b *Bridge) HandleCommand(data []byte) error {
	cmd, err := protocol.DecodeCommand(data)
	if err != nil {
		return err
	}
	if cmd.State > uint8(CmdClearError) {
		return errors.New("bad state command: " + itoa(int(cmd.State)))
	}

	pc := PendingCommand{
		XTicks: b.XScale.ToTicks(cmd.XMM),
		YTicks: b.YScale.ToTicks(cmd.YMM),
		XClass: cmd.XSpeed,
		YClass: cmd.YSpeed,
		State:  StateCmd(cmd.State),
	}
	Critical(func() {
		b.pending = pc
		b.fresh = true
		b.received++
	})
	return nil
}

// TakeCommand returns the latest command if one arrived since the last call
func (b *Bridge) TakeCommand() (PendingCommand, bool) {
	var pc PendingCommand
	var ok bool
	Critical(func() {
		pc, ok = b.pending, b.fresh
		b.fresh = false
	})
	return pc, ok
}

// SendStatus transmits a status frame. Nothing is sent while a CAN error
// is latched. A failed transmit latches the matching error.
// Returns true when the frame was accepted by the controller.
func (b *Bridge) SendStatus(st protocol.Status) bool {
	if b.err != ErrNone {
		b.suppressed++
		return false
	}

	b.buf = protocol.EncodeStatus(st)
	res := b.can.Transmit(protocol.IDStatus, b.buf[:])
	b.lastResult = res
	switch res {
	case TxOK:
		b.sent++
		return true
	case TxBufferFull:
		b.err = ErrCANBufferFull
	default:
		b.err = ErrCANTx
	}
	b.failed++
	return false
}

// Error returns the latched CAN error
func (b *Bridge) Error() SystemError {
	return b.err
}

// LastResult returns the result of the last transmit attempt
func (b *Bridge) LastResult() TxResult {
	return b.lastResult
}

// ClearError releases a latched CAN error, re-enabling status sends
func (b *Bridge) ClearError() {
	b.err = ErrNone
}

// Counters returns frames received, sent, failed and suppressed
func (b *Bridge) Counters() (received, sent, failed, suppressed uint32) {
	Critical(func() {
		received = b.received
	})
	return received, b.sent, b.failed, b.suppressed
}
