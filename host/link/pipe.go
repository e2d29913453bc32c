package link

import (
	"context"
	"sync"

	"paddle/protocol"
)

const pipeQueue = 64

// pipeEnd is one side of an in-process link
type pipeEnd struct {
	rx   <-chan protocol.Frame
	tx   chan<- protocol.Frame
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected links. Frames sent on one are received on
// the other. Closing either end closes both.
func Pipe() (Link, Link) {
	ab := make(chan protocol.Frame, pipeQueue)
	ba := make(chan protocol.Frame, pipeQueue)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{rx: ba, tx: ab, done: done, once: once},
		&pipeEnd{rx: ab, tx: ba, done: done, once: once}
}

func (p *pipeEnd) Send(f protocol.Frame) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.tx <- f:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *pipeEnd) Receive(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-p.rx:
		return f, nil
	case <-ctx.Done():
		return protocol.Frame{}, ctxErr(ctx)
	case <-p.done:
		return protocol.Frame{}, ErrClosed
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
