package link

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"paddle/protocol"
)

// Layout of struct can_frame in linux/can.h
const (
	rawFrameSize = 16
	rawDataOff   = 8

	flagEFF = 0x80000000 // Extended identifier
	flagRTR = 0x40000000 // Remote request
	flagERR = 0x20000000 // Error frame
)

var errNotData = errors.New("link: not a standard data frame")

// marshalRaw packs f into a kernel can_frame
func marshalRaw(f protocol.Frame) [rawFrameSize]byte {
	var buf [rawFrameSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], f.ID&protocol.IDMask)
	payload := f.Payload()
	buf[4] = uint8(len(payload))
	copy(buf[rawDataOff:], payload)
	return buf
}

// unmarshalRaw decodes a kernel can_frame. Extended, remote and error
// frames are rejected with errNotData.
func unmarshalRaw(buf []byte) (protocol.Frame, error) {
	var f protocol.Frame
	if len(buf) != rawFrameSize {
		return f, errors.Errorf("link: short frame (%d bytes)", len(buf))
	}
	id := binary.LittleEndian.Uint32(buf[0:4])
	if id&(flagEFF|flagRTR|flagERR) != 0 {
		return f, errNotData
	}
	dlc := buf[4]
	if dlc > protocol.FrameDataMax {
		dlc = protocol.FrameDataMax
	}
	f.ID = id & protocol.IDMask
	f.Len = dlc
	copy(f.Data[:], buf[rawDataOff:rawDataOff+int(dlc)])
	return f, nil
}
