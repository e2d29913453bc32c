package protocol

import "errors"

// State command codes carried in command byte 5
const (
	CmdOff         = 0
	CmdCalibration = 1
	CmdOn          = 2
	CmdClearError  = 3
)

// State codes carried in status byte 5
const (
	StateOff         = 0
	StateCalibration = 1
	StateOn          = 2
	StateError       = 3
)

// Error codes carried in status byte 6
const (
	ErrNone          = 0
	ErrYOverload     = 1
	ErrXOverload     = 2
	ErrCANBufferFull = 3
	ErrCANTx         = 4
	ErrYLrMismatch   = 5
	ErrHomingFailed  = 6
)

// Goal indicator bits carried in status byte 4
const (
	GoalHuman = 0x10
	GoalRobot = 0x20
	GoalMask  = 0xF0
)

// Speed class field layout in command byte 4
const (
	speedXMask  = 0x03
	speedYShift = 2
	speedYMask  = 0x03
)

var ErrShortFrame = errors.New("paddle: frame shorter than 8 bytes")

// Command is the master controller's position and mode request
type Command struct {
	XMM    uint16 // X position target (mm)
	YMM    uint16 // Y position target (mm)
	XSpeed uint8  // X speed class (0..3)
	YSpeed uint8  // Y speed class (0..3)
	State  uint8  // State command code
}

// Status is the paddle controller's periodic report
type Status struct {
	XMM   uint16 // X position (mm)
	YMM   uint16 // Y position (mm)
	Goal  uint8  // Goal indicator bits
	State uint8  // State code
	Error uint8  // Error code
	Debug uint8  // Free-form debug byte
}

// EncodeCommand packs a command into an 8-byte payload
func EncodeCommand(c Command) [FrameDataMax]byte {
	var b [FrameDataMax]byte
	putU16(b[0:2], c.XMM)
	putU16(b[2:4], c.YMM)
	b[4] = (c.XSpeed & speedXMask) | ((c.YSpeed & speedYMask) << speedYShift)
	b[5] = c.State
	return b
}

// DecodeCommand unpacks a command payload
func DecodeCommand(data []byte) (Command, error) {
	if len(data) < FrameDataMax {
		return Command{}, ErrShortFrame
	}
	return Command{
		XMM:    getU16(data[0:2]),
		YMM:    getU16(data[2:4]),
		XSpeed: data[4] & speedXMask,
		YSpeed: (data[4] >> speedYShift) & speedYMask,
		State:  data[5],
	}, nil
}

// EncodeStatus packs a status report into an 8-byte payload
func EncodeStatus(s Status) [FrameDataMax]byte {
	var b [FrameDataMax]byte
	putU16(b[0:2], s.XMM)
	putU16(b[2:4], s.YMM)
	b[4] = s.Goal & GoalMask
	b[5] = s.State
	b[6] = s.Error
	b[7] = s.Debug
	return b
}

// DecodeStatus unpacks a status payload
func DecodeStatus(data []byte) (Status, error) {
	if len(data) < FrameDataMax {
		return Status{}, ErrShortFrame
	}
	return Status{
		XMM:   getU16(data[0:2]),
		YMM:   getU16(data[2:4]),
		Goal:  data[4] & GoalMask,
		State: data[5],
		Error: data[6],
		Debug: data[7],
	}, nil
}

// CommandFrame wraps an encoded command in a frame
func CommandFrame(c Command) Frame {
	return Frame{ID: IDCommand, Len: FrameDataMax, Data: EncodeCommand(c)}
}

// StatusFrame wraps an encoded status in a frame
func StatusFrame(s Status) Frame {
	return Frame{ID: IDStatus, Len: FrameDataMax, Data: EncodeStatus(s)}
}

// StateName returns the name of a state code
func StateName(code uint8) string {
	switch code {
	case StateOff:
		return "off"
	case StateCalibration:
		return "calibration"
	case StateOn:
		return "on"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ErrorName returns the name of an error code
func ErrorName(code uint8) string {
	switch code {
	case ErrNone:
		return "none"
	case ErrYOverload:
		return "y_overload"
	case ErrXOverload:
		return "x_overload"
	case ErrCANBufferFull:
		return "can_buffer_full"
	case ErrCANTx:
		return "can_tx"
	case ErrYLrMismatch:
		return "y_lr_mismatch"
	case ErrHomingFailed:
		return "homing_failed"
	}
	return "unknown"
}

// little-endian helpers
func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getU16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
