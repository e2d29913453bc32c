// Package link carries paddle CAN frames between a host and the bus.
//
// Two transports are provided: raw SocketCAN on Linux and SLCAN
// (Lawicel ASCII) over a USB-serial adapter. Pipe connects two
// in-process endpoints for the simulator and tests.
package link

import (
	"context"

	"github.com/pkg/errors"

	"paddle/protocol"
)

// Common link errors
var (
	ErrNotConnected = errors.New("link: not connected")
	ErrTimeout      = errors.New("link: operation timed out")
	ErrClosed       = errors.New("link: connection closed")
	ErrBufferFull   = errors.New("link: transmit buffer full")
	ErrNotSupported = errors.New("link: not supported on this platform")
)

// Link sends and receives standard-identifier CAN data frames
type Link interface {
	// Send queues one frame for transmission
	Send(f protocol.Frame) error

	// Receive blocks until a frame arrives or ctx is done
	Receive(ctx context.Context) (protocol.Frame, error)

	// Close releases the underlying connection
	Close() error
}

// ctxErr maps a finished context onto the link errors
func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
