package protocol

import "errors"

const hexDigits = "0123456789ABCDEF"

var (
	ErrFrameTooLong = errors.New("frame: payload longer than 8 bytes")
	ErrBadID        = errors.New("frame: identifier exceeds 11 bits")
)

// Frame is a classic CAN data frame with a standard identifier
type Frame struct {
	ID   uint32
	Len  uint8
	Data [FrameDataMax]byte
}

// NewFrame builds a frame from an identifier and payload
func NewFrame(id uint32, data []byte) (Frame, error) {
	var f Frame
	if id > IDMask {
		return f, ErrBadID
	}
	if len(data) > FrameDataMax {
		return f, ErrFrameTooLong
	}
	f.ID = id
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	return f, nil
}

// Payload returns the valid data bytes
func (f *Frame) Payload() []byte {
	n := f.Len
	if n > FrameDataMax {
		n = FrameDataMax
	}
	return f.Data[:n]
}

// String renders the frame like candump does: "101#F401..."
func (f Frame) String() string {
	buf := make([]byte, 0, 4+2*FrameDataMax)
	buf = append(buf, hexDigits[(f.ID>>8)&0xF], hexDigits[(f.ID>>4)&0xF], hexDigits[f.ID&0xF], '#')
	for _, b := range f.Payload() {
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return string(buf)
}
