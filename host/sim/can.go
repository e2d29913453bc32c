package sim

import (
	"sync"

	"github.com/pkg/errors"

	"paddle/core"
	"paddle/host/link"
	"paddle/protocol"
)

// CAN is a simulated CAN controller. Transmitted frames are forwarded
// to an optional link and the last status frame is kept for inspection.
type CAN struct {
	mu     sync.Mutex
	link   link.Link
	force  core.TxResult
	sent   uint32
	failed uint32
	last   protocol.Frame
	have   bool
}

// NewCAN creates a controller with no bus attached
func NewCAN() *CAN {
	return &CAN{}
}

// Connect forwards transmitted frames to l
func (c *CAN) Connect(l link.Link) {
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()
}

// Force makes every transmit return r until reset with core.TxOK
func (c *CAN) Force(r core.TxResult) {
	c.mu.Lock()
	c.force = r
	c.mu.Unlock()
}

// Transmit implements core.CANDriver
func (c *CAN) Transmit(id uint32, data []byte) core.TxResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.force != core.TxOK {
		c.failed++
		return c.force
	}
	f, err := protocol.NewFrame(id, data)
	if err != nil {
		c.failed++
		return core.TxTimeout
	}
	if c.link != nil {
		if err := c.link.Send(f); err != nil {
			c.failed++
			if errors.Is(err, link.ErrBufferFull) {
				return core.TxBufferFull
			}
			return core.TxTimeout
		}
	}
	c.sent++
	c.last = f
	c.have = true
	return core.TxOK
}

// LastStatus decodes the most recent status frame sent
func (c *CAN) LastStatus() (protocol.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.have || c.last.ID != protocol.IDStatus {
		return protocol.Status{}, false
	}
	st, err := protocol.DecodeStatus(c.last.Payload())
	return st, err == nil
}

// Counters returns the number of frames sent and refused
func (c *CAN) Counters() (sent, failed uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent, c.failed
}
