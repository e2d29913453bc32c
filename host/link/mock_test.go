package link

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MockPort is a scripted serial port
type MockPort struct {
	mu      sync.Mutex
	input   []byte
	written bytes.Buffer
	closed  bool
	flushes int
}

func (p *MockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(p.input) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, io.EOF
	}
	n := copy(b, p.input)
	p.input = p.input[n:]
	p.mu.Unlock()
	return n, nil
}

func (p *MockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.written.Write(b)
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *MockPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	return nil
}

// Inject queues bytes for the reader
func (p *MockPort) Inject(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.input = append(p.input, s...)
}

func (p *MockPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *MockPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
