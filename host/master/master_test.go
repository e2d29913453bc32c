package master

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paddle/host/link"
	"paddle/protocol"
)

func newTestClient(t *testing.T) (*Client, link.Link) {
	t.Helper()
	host, paddle := link.Pipe()
	t.Cleanup(func() { host.Close() })
	return NewClient(host, zerolog.Nop()), paddle
}

func receiveCommand(t *testing.T, l link.Link) protocol.Command {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := l.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if f.ID != protocol.IDCommand {
		t.Fatalf("Expected command ID, got 0x%X", f.ID)
	}
	cmd, err := protocol.DecodeCommand(f.Payload())
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	return cmd
}

func TestMoveKeepsState(t *testing.T) {
	c, paddle := newTestClient(t)

	if err := c.SetState(protocol.CmdOn); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	receiveCommand(t, paddle)

	if err := c.Move(400, 250, 3, 1); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	cmd := receiveCommand(t, paddle)
	if cmd.XMM != 400 || cmd.YMM != 250 {
		t.Errorf("Expected 400/250 mm, got %d/%d", cmd.XMM, cmd.YMM)
	}
	if cmd.XSpeed != 3 || cmd.YSpeed != 1 {
		t.Errorf("Expected classes 3/1, got %d/%d", cmd.XSpeed, cmd.YSpeed)
	}
	if cmd.State != protocol.CmdOn {
		t.Errorf("Expected state on, got %d", cmd.State)
	}
}

func TestRangeChecks(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.SetState(4); err == nil {
		t.Error("Expected error for state 4")
	}
	if err := c.Move(0, 0, 4, 0); err == nil {
		t.Error("Expected error for class 4")
	}
	if got := c.Command(); got.XSpeed != 0 || got.State != protocol.CmdOff {
		t.Errorf("Expected command unchanged, got %+v", got)
	}
}

func TestRunTracksStatus(t *testing.T) {
	c, paddle := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if _, _, ok := c.LastStatus(); ok {
		t.Error("Expected no status before the first report")
	}

	ch, unwatch := c.Watch()
	defer unwatch()

	paddle.Send(protocol.CommandFrame(protocol.Command{}))
	paddle.Send(protocol.Frame{ID: protocol.IDStatus, Len: 3})
	paddle.Send(protocol.StatusFrame(protocol.Status{XMM: 90, YMM: 60, State: protocol.StateOn}))

	select {
	case st := <-ch:
		if st.XMM != 90 || st.YMM != 60 || st.State != protocol.StateOn {
			t.Errorf("Expected on at 90/60, got %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a status report")
	}

	received, bad := c.Counters()
	if received != 1 || bad != 1 {
		t.Errorf("Expected 1 good and 1 bad frame, got %d/%d", received, bad)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestWaitState(t *testing.T) {
	c, paddle := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go c.Run(ctx)

	go func() {
		time.Sleep(5 * time.Millisecond)
		paddle.Send(protocol.StatusFrame(protocol.Status{State: protocol.StateCalibration}))
		paddle.Send(protocol.StatusFrame(protocol.Status{State: protocol.StateOn}))
	}()

	st, err := c.WaitState(ctx, protocol.StateOn)
	if err != nil {
		t.Fatalf("WaitState failed: %v", err)
	}
	if st.State != protocol.StateOn {
		t.Errorf("Expected on, got %d", st.State)
	}
}

func TestWaitStateFailsOnError(t *testing.T) {
	c, paddle := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go c.Run(ctx)

	go func() {
		time.Sleep(5 * time.Millisecond)
		paddle.Send(protocol.StatusFrame(protocol.Status{State: protocol.StateError, Error: protocol.ErrHomingFailed}))
	}()

	st, err := c.WaitState(ctx, protocol.StateOn)
	if err == nil {
		t.Fatal("Expected error when the paddle reports an error")
	}
	if st.Error != protocol.ErrHomingFailed {
		t.Errorf("Expected homing_failed, got %d", st.Error)
	}
}

func TestFollowsCalibrationPromotion(t *testing.T) {
	c, _ := newTestClient(t)
	if err := c.SetState(protocol.CmdCalibration); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	c.update(protocol.Status{State: protocol.StateCalibration})
	if got := c.Command().State; got != protocol.CmdCalibration {
		t.Errorf("Expected calibration while homing, got %d", got)
	}
	c.update(protocol.Status{State: protocol.StateOn})
	if got := c.Command().State; got != protocol.CmdOn {
		t.Errorf("Expected on after homing, got %d", got)
	}
}

func TestFollowsClearConsumed(t *testing.T) {
	c, _ := newTestClient(t)
	if err := c.SetState(protocol.CmdClearError); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	c.update(protocol.Status{State: protocol.StateError, Error: protocol.ErrXOverload})
	if got := c.Command().State; got != protocol.CmdClearError {
		t.Errorf("Expected clear while in error, got %d", got)
	}
	c.update(protocol.Status{State: protocol.StateOff})
	if got := c.Command().State; got != protocol.CmdOff {
		t.Errorf("Expected off after clear, got %d", got)
	}
}
