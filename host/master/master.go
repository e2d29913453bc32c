// Package master is a host-side stand-in for the table's master
// controller: it sends position/state commands to the paddle and
// tracks the status reports it sends back.
package master

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"paddle/host/link"
	"paddle/protocol"
)

const watchQueue = 16

// Client talks to one paddle controller over a CAN link
type Client struct {
	link link.Link
	log  zerolog.Logger

	mu       sync.Mutex
	cmd      protocol.Command
	status   protocol.Status
	statusAt time.Time
	received uint64
	bad      uint64
	watchers map[chan protocol.Status]struct{}
}

// NewClient creates a client on an open link
func NewClient(l link.Link, logger zerolog.Logger) *Client {
	return &Client{
		link:     l,
		log:      logger,
		cmd:      protocol.Command{State: protocol.CmdOff},
		watchers: make(map[chan protocol.Status]struct{}),
	}
}

// Close closes the link
func (c *Client) Close() error {
	return c.link.Close()
}

// Run receives status frames until ctx is done or the link fails
func (c *Client) Run(ctx context.Context) error {
	for {
		f, err := c.link.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "master: receive")
		}
		if f.ID != protocol.IDStatus {
			continue
		}
		st, err := protocol.DecodeStatus(f.Payload())
		if err != nil {
			c.mu.Lock()
			c.bad++
			c.mu.Unlock()
			c.log.Warn().Err(err).Str("frame", f.String()).Msg("bad status frame")
			continue
		}
		c.update(st)
	}
}

func (c *Client) update(st protocol.Status) {
	c.mu.Lock()
	prev, seen := c.status, c.received > 0
	c.status = st
	c.statusAt = time.Now()
	c.received++
	// The controller promotes a finished calibration to on and consumes
	// a clear request; follow it so repeated commands do not undo either
	switch {
	case st.State == protocol.StateOn && c.cmd.State == protocol.CmdCalibration && prev.State == protocol.StateCalibration:
		c.cmd.State = protocol.CmdOn
	case st.State == protocol.StateOff && c.cmd.State == protocol.CmdClearError:
		c.cmd.State = protocol.CmdOff
	}
	for ch := range c.watchers {
		select {
		case ch <- st:
		default:
		}
	}
	c.mu.Unlock()

	if !seen || prev.State != st.State || prev.Error != st.Error {
		ev := c.log.Info()
		if st.Error != protocol.ErrNone {
			ev = c.log.Warn()
		}
		ev.Str("state", protocol.StateName(st.State)).
			Str("error", protocol.ErrorName(st.Error)).
			Uint16("x_mm", st.XMM).
			Uint16("y_mm", st.YMM).
			Msg("paddle state")
	}
	if prev.Goal != st.Goal && st.Goal != 0 {
		c.log.Info().
			Bool("human", st.Goal&protocol.GoalHuman != 0).
			Bool("robot", st.Goal&protocol.GoalRobot != 0).
			Msg("goal")
	}
}

// SetState sends the current targets with a new state command
func (c *Client) SetState(state uint8) error {
	if state > protocol.CmdClearError {
		return errors.Errorf("master: state command %d out of range", state)
	}
	c.mu.Lock()
	c.cmd.State = state
	cmd := c.cmd
	c.mu.Unlock()
	return c.send(cmd)
}

// Move sends new targets in mm with speed classes 0..3, keeping the state command
func (c *Client) Move(xmm, ymm uint16, xClass, yClass uint8) error {
	if xClass > 3 || yClass > 3 {
		return errors.Errorf("master: speed class %d/%d out of range", xClass, yClass)
	}
	c.mu.Lock()
	c.cmd.XMM, c.cmd.YMM = xmm, ymm
	c.cmd.XSpeed, c.cmd.YSpeed = xClass, yClass
	cmd := c.cmd
	c.mu.Unlock()
	return c.send(cmd)
}

// Resend repeats the last command
func (c *Client) Resend() error {
	return c.send(c.Command())
}

func (c *Client) send(cmd protocol.Command) error {
	f := protocol.CommandFrame(cmd)
	if err := c.link.Send(f); err != nil {
		return errors.Wrapf(err, "master: send %s", f)
	}
	c.log.Debug().Str("frame", f.String()).Msg("command sent")
	return nil
}

// Repeat resends the last command every interval until ctx is done
func (c *Client) Repeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Resend(); err != nil {
				return err
			}
		}
	}
}

// Command returns the last command sent
func (c *Client) Command() protocol.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cmd
}

// LastStatus returns the most recent status and when it arrived.
// ok is false until the first report.
func (c *Client) LastStatus() (st protocol.Status, at time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.statusAt, c.received > 0
}

// Counters returns the number of good and malformed status frames
func (c *Client) Counters() (received, bad uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received, c.bad
}

// Watch subscribes to status reports. Slow readers miss reports.
// The returned function cancels the subscription.
func (c *Client) Watch() (<-chan protocol.Status, func()) {
	ch := make(chan protocol.Status, watchQueue)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
}

// WaitState blocks until the paddle reports state, or ctx is done.
// Reaching the error state while waiting for another state fails early.
func (c *Client) WaitState(ctx context.Context, state uint8) (protocol.Status, error) {
	if st, _, ok := c.LastStatus(); ok && st.State == state {
		return st, nil
	}
	ch, cancel := c.Watch()
	defer cancel()
	for {
		select {
		case st := <-ch:
			if st.State == state {
				return st, nil
			}
			if st.State == protocol.StateError && state != protocol.StateError {
				return st, errors.Errorf("master: paddle error %s", protocol.ErrorName(st.Error))
			}
		case <-ctx.Done():
			return protocol.Status{}, errors.Wrapf(ctx.Err(), "master: waiting for %s", protocol.StateName(state))
		}
	}
}
