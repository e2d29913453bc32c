package link

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"paddle/host/serial"
	"paddle/protocol"
)

const (
	slcanQueue    = 64
	slcanReadSize = 64
	slcanLineBuf  = 256
)

// SLCAN is a CAN link through a Lawicel-protocol USB-serial adapter
type SLCAN struct {
	port   serial.Port
	reader *protocol.SLCANReader
	frames chan protocol.Frame

	wmu    sync.Mutex
	mu     sync.Mutex
	err    error
	closed bool
	done   chan struct{}
	once   sync.Once

	dropped uint32
	nacks   uint32
}

// OpenSLCAN opens the adapter's serial port and starts the bus
func OpenSLCAN(cfg *serial.Config, bitrate uint32) (*SLCAN, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewSLCAN(port, bitrate)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// NewSLCAN configures an adapter on an already open port:
// close the channel, select the bitrate, open the channel.
func NewSLCAN(port serial.Port, bitrate uint32) (*SLCAN, error) {
	setup, err := protocol.SLCANBitrate(bitrate)
	if err != nil {
		return nil, errors.Wrapf(err, "link: bitrate %d", bitrate)
	}

	s := &SLCAN{
		port:   port,
		reader: protocol.NewSLCANReader(slcanLineBuf),
		frames: make(chan protocol.Frame, slcanQueue),
		done:   make(chan struct{}),
	}

	for _, cmd := range [][]byte{protocol.SLCANClose, setup, protocol.SLCANOpen} {
		if err := s.write(cmd); err != nil {
			return nil, errors.Wrap(err, "link: configure adapter")
		}
	}
	if err := port.Flush(); err != nil {
		log.Debug().Err(err).Msg("slcan flush")
	}

	go s.readLoop()
	return s, nil
}

func (s *SLCAN) write(b []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.port.Write(b)
	return err
}

// readLoop turns adapter output into frames until the port fails or closes
func (s *SLCAN) readLoop() {
	buf := make([]byte, slcanReadSize)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			s.reader.Feed(buf[:n])
			s.drain()
		}
		select {
		case <-s.done:
			return
		default:
		}
		if err != nil && err != io.EOF {
			s.fail(errors.Wrap(err, "link: serial read"))
			return
		}
		if n == 0 {
			// tarm/serial reports an expired read timeout as EOF
			time.Sleep(time.Millisecond)
		}
	}
}

func (s *SLCAN) drain() {
	for {
		msg, ok, err := s.reader.Next()
		if err != nil {
			log.Warn().Err(err).Str("line", msg.Raw).Msg("slcan: bad line")
			if !ok {
				return
			}
			continue
		}
		if !ok {
			return
		}
		switch msg.Kind {
		case protocol.SLCANFrame:
			select {
			case s.frames <- msg.Frame:
			default:
				s.mu.Lock()
				s.dropped++
				s.mu.Unlock()
			}
		case protocol.SLCANNack:
			s.mu.Lock()
			s.nacks++
			s.mu.Unlock()
			log.Debug().Msg("slcan: adapter rejected command")
		}
	}
}

func (s *SLCAN) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

func (s *SLCAN) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send writes one frame in SLCAN ASCII form
func (s *SLCAN) Send(f protocol.Frame) error {
	select {
	case <-s.done:
		if err := s.failure(); err != nil {
			return err
		}
		return ErrClosed
	default:
	}
	if err := s.write(protocol.EncodeSLCAN(f)); err != nil {
		return errors.Wrap(err, "link: serial write")
	}
	return nil
}

// Receive returns the next frame reported by the adapter
func (s *SLCAN) Receive(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return protocol.Frame{}, ctxErr(ctx)
	case <-s.done:
		if err := s.failure(); err != nil {
			return protocol.Frame{}, err
		}
		return protocol.Frame{}, ErrClosed
	}
}

// Stats returns the frames dropped on a full queue and the rejected commands
func (s *SLCAN) Stats() (dropped, nacks uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped, s.nacks
}

// Close closes the CAN channel and the serial port
func (s *SLCAN) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.once.Do(func() { close(s.done) })
	if err := s.write(protocol.SLCANClose); err != nil {
		log.Debug().Err(err).Msg("slcan: close channel")
	}
	return s.port.Close()
}
