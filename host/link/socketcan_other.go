//go:build !linux

package link

import (
	"time"
)

// SocketCANConfig holds SocketCAN connection settings
type SocketCANConfig struct {
	Interface    string
	Filter       []uint32
	PollInterval time.Duration
}

// DefaultSocketCANConfig returns a config for can0
func DefaultSocketCANConfig() SocketCANConfig {
	return SocketCANConfig{Interface: "can0", PollInterval: 50 * time.Millisecond}
}

// OpenSocketCAN is only available on Linux
func OpenSocketCAN(cfg SocketCANConfig) (Link, error) {
	return nil, ErrNotSupported
}
