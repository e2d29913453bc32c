package protocol

import "errors"

// SLCAN (Lawicel) ASCII framing used by USB-serial CAN adapters
const (
	slcanCR   = '\r'
	slcanBell = 0x07
)

var (
	SLCANOpen  = []byte("O\r")
	SLCANClose = []byte("C\r")

	ErrSLCANSyntax  = errors.New("slcan: malformed frame")
	ErrSLCANBitrate = errors.New("slcan: unsupported bitrate")
)

// SLCANKind classifies a line received from an adapter
type SLCANKind uint8

const (
	SLCANAck   SLCANKind = iota // Empty line, command accepted
	SLCANNack                   // Bell, command rejected
	SLCANTxAck                  // "z", frame queued for transmit
	SLCANFrame                  // "t...", received standard frame
	SLCANOther                  // Version strings, status flags
)

// SLCANMessage is one decoded adapter line
type SLCANMessage struct {
	Kind  SLCANKind
	Frame Frame
	Raw   string
}

var slcanBitrates = []struct {
	bps  uint32
	code byte
}{
	{10000, '0'}, {20000, '1'}, {50000, '2'}, {100000, '3'},
	{125000, '4'}, {250000, '5'}, {500000, '6'}, {800000, '7'}, {1000000, '8'},
}

// SLCANBitrate returns the "Sn\r" command for a bitrate
func SLCANBitrate(bps uint32) ([]byte, error) {
	for _, b := range slcanBitrates {
		if b.bps == bps {
			return []byte{'S', b.code, slcanCR}, nil
		}
	}
	return nil, ErrSLCANBitrate
}

// EncodeSLCAN renders a frame as "tIIILDD..\r"
func EncodeSLCAN(f Frame) []byte {
	payload := f.Payload()
	buf := make([]byte, 0, 6+2*len(payload))
	buf = append(buf, 't',
		hexDigits[(f.ID>>8)&0xF], hexDigits[(f.ID>>4)&0xF], hexDigits[f.ID&0xF],
		'0'+byte(len(payload)))
	for _, b := range payload {
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return append(buf, slcanCR)
}

// DecodeSLCAN parses a "tIIILDD.." line without its terminator
func DecodeSLCAN(line []byte) (Frame, error) {
	var f Frame
	if len(line) < 5 || line[0] != 't' {
		return f, ErrSLCANSyntax
	}
	id, ok := parseHex(line[1:4])
	if !ok {
		return f, ErrSLCANSyntax
	}
	dlc := line[4] - '0'
	if dlc > FrameDataMax || len(line) != 5+2*int(dlc) {
		return f, ErrSLCANSyntax
	}
	f.ID = id
	f.Len = dlc
	for i := 0; i < int(dlc); i++ {
		v, ok := parseHex(line[5+2*i : 7+2*i])
		if !ok {
			return f, ErrSLCANSyntax
		}
		f.Data[i] = byte(v)
	}
	return f, nil
}

func parseHex(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uint32(c-'0')
		case c >= 'A' && c <= 'F':
			v = v<<4 | uint32(c-'A'+10)
		case c >= 'a' && c <= 'f':
			v = v<<4 | uint32(c-'a'+10)
		default:
			return 0, false
		}
	}
	return v, true
}

// SLCANReader reassembles adapter output into lines
type SLCANReader struct {
	fifo *FifoBuffer
}

// NewSLCANReader creates a reader with the given buffer capacity
func NewSLCANReader(capacity int) *SLCANReader {
	return &SLCANReader{fifo: NewFifoBuffer(capacity)}
}

// Feed appends raw bytes from the serial port, returning how many fit
func (r *SLCANReader) Feed(data []byte) int {
	return r.fifo.Write(data)
}

// Next returns the next complete line. ok is false when no full line is buffered.
func (r *SLCANReader) Next() (msg SLCANMessage, ok bool, err error) {
	data := r.fifo.Data()
	end := -1
	for i, c := range data {
		if c == slcanCR || c == slcanBell {
			end = i
			break
		}
	}
	if end < 0 {
		if r.fifo.Free() == 0 {
			// A line longer than the buffer can never complete
			r.fifo.Reset()
			return msg, false, ErrSLCANSyntax
		}
		return msg, false, nil
	}

	line := data[:end]
	term := data[end]
	msg.Raw = string(line)
	r.fifo.Pop(end + 1)

	switch {
	case term == slcanBell:
		msg.Kind = SLCANNack
	case len(line) == 0:
		msg.Kind = SLCANAck
	case line[0] == 'z' || line[0] == 'Z':
		msg.Kind = SLCANTxAck
	case line[0] == 't':
		f, err := DecodeSLCAN(line)
		if err != nil {
			return msg, true, err
		}
		msg.Kind = SLCANFrame
		msg.Frame = f
	default:
		msg.Kind = SLCANOther
	}
	return msg, true, nil
}
