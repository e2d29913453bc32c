//go:build linux

package link

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"paddle/protocol"
)

// SocketCANConfig holds SocketCAN connection settings
type SocketCANConfig struct {
	// Interface name (e.g., "can0", "vcan0")
	Interface string

	// Identifiers to receive. Empty receives every standard data frame.
	Filter []uint32

	// Poll interval used to notice context cancellation while blocked
	PollInterval time.Duration
}

// DefaultSocketCANConfig returns a config receiving status frames on can0
func DefaultSocketCANConfig() SocketCANConfig {
	return SocketCANConfig{
		Interface:    "can0",
		Filter:       []uint32{protocol.IDStatus},
		PollInterval: 50 * time.Millisecond,
	}
}

// SocketCAN is a raw CAN socket bound to one interface
type SocketCAN struct {
	mu     sync.Mutex
	fd     int
	cfg    SocketCANConfig
	closed bool
}

// OpenSocketCAN opens and binds a raw CAN socket
func OpenSocketCAN(cfg SocketCANConfig) (*SocketCAN, error) {
	if cfg.Interface == "" {
		cfg.Interface = "can0"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}

	iface, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, errors.Wrapf(err, "link: interface %s", cfg.Interface)
	}
	if iface.Flags&net.FlagUp == 0 {
		return nil, errors.Errorf("link: interface %s is down", cfg.Interface)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, errors.Wrap(err, "link: create socket")
	}

	if err := unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, rawFilters(cfg.Filter)); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "link: set filter")
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "link: bind %s", cfg.Interface)
	}

	return &SocketCAN{fd: fd, cfg: cfg}, nil
}

// rawFilters builds exact-match filters on standard data frames
func rawFilters(ids []uint32) []unix.CanFilter {
	mask := uint32(protocol.IDMask | unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG)
	if len(ids) == 0 {
		return []unix.CanFilter{{Id: 0, Mask: unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG}}
	}
	filters := make([]unix.CanFilter, len(ids))
	for i, id := range ids {
		filters[i] = unix.CanFilter{Id: id & protocol.IDMask, Mask: mask}
	}
	return filters
}

// descriptor returns the socket, or ErrNotConnected once closed
func (s *SocketCAN) descriptor() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.fd < 0 {
		return -1, ErrNotConnected
	}
	return s.fd, nil
}

// Send writes one frame
func (s *SocketCAN) Send(f protocol.Frame) error {
	fd, err := s.descriptor()
	if err != nil {
		return err
	}
	buf := marshalRaw(f)
	n, err := unix.Write(fd, buf[:])
	if err != nil {
		if errors.Is(err, unix.ENOBUFS) || errors.Is(err, unix.EAGAIN) {
			return ErrBufferFull
		}
		return errors.Wrap(err, "link: write")
	}
	if n != rawFrameSize {
		return errors.Errorf("link: short write (%d bytes)", n)
	}
	return nil
}

// Receive reads the next standard data frame
func (s *SocketCAN) Receive(ctx context.Context) (protocol.Frame, error) {
	var buf [rawFrameSize]byte
	timeoutMs := int(s.cfg.PollInterval.Milliseconds())
	if timeoutMs <= 0 {
		timeoutMs = 1
	}

	for {
		if ctx.Err() != nil {
			return protocol.Frame{}, ctxErr(ctx)
		}
		fd, err := s.descriptor()
		if err != nil {
			return protocol.Frame{}, err
		}

		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, timeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return protocol.Frame{}, errors.Wrap(err, "link: poll")
		}
		if n == 0 {
			continue
		}
		if pfd[0].Revents&(unix.POLLNVAL|unix.POLLHUP) != 0 {
			return protocol.Frame{}, ErrClosed
		}

		n, err = unix.Read(fd, buf[:])
		if err != nil {
			return protocol.Frame{}, errors.Wrap(err, "link: read")
		}
		f, err := unmarshalRaw(buf[:n])
		if err == errNotData {
			continue
		}
		return f, err
	}
}

// Close closes the socket
func (s *SocketCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	fd := s.fd
	s.fd = -1
	if fd >= 0 {
		return unix.Close(fd)
	}
	return nil
}
