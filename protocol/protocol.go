// Package protocol implements the paddle controller CAN wire format
// and the serial framing used to carry it to a host.
package protocol

// Version represents the paddle firmware protocol version
const Version = "1.0.0"

// Protocol constants
const (
	FrameDataMax = 8 // Classic CAN payload size

	IDCommand = 0x100 // Master controller -> paddle controller
	IDStatus  = 0x101 // Paddle controller -> master controller

	IDMask = 0x7FF // Standard 11-bit identifier

	Bitrate = 125000 // Bus bitrate used by the table
)
