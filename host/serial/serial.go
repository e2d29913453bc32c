// Package serial opens the serial side of USB-CAN adapters.
package serial

import (
	"io"
)

// Port is a byte stream to an adapter. SLCAN reads and writes go through
// it so tests can substitute an in-memory port.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input
	Flush() error
}

// Config describes the adapter's serial port
type Config struct {
	Device      string // e.g. "/dev/ttyACM0", "COM3"
	Baud        int    // Ignored by CDC adapters
	ReadTimeout int    // Milliseconds, 0 blocks
}

// DefaultConfig returns the settings for an SLCAN adapter on device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
	}
}
