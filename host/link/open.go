package link

import (
	"github.com/pkg/errors"

	"paddle/host/serial"
	"paddle/protocol"
)

// Options selects and configures a transport
type Options struct {
	Interface string   // SocketCAN interface; takes precedence when set
	Device    string   // SLCAN adapter serial device
	Bitrate   uint32   // SLCAN bus bitrate
	Receive   []uint32 // Identifiers to receive (SocketCAN only)
}

// Open connects using SocketCAN when an interface is named,
// otherwise through an SLCAN adapter
func Open(opts Options) (Link, error) {
	switch {
	case opts.Interface != "":
		cfg := DefaultSocketCANConfig()
		cfg.Interface = opts.Interface
		cfg.Filter = opts.Receive
		l, err := OpenSocketCAN(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	case opts.Device != "":
		bitrate := opts.Bitrate
		if bitrate == 0 {
			bitrate = protocol.Bitrate
		}
		l, err := OpenSLCAN(serial.DefaultConfig(opts.Device), bitrate)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, errors.New("link: no interface or device given")
}
