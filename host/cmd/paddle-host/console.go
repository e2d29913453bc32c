package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"paddle/host/master"
	"paddle/protocol"
)

// console executes interactive commands against a paddle controller
type console struct {
	client *master.Client
	out    io.Writer
}

// execute runs one tokenized command line. quit is true when the user asked to exit.
func (c *console) execute(ctx context.Context, args []string) (quit bool, err error) {
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "quit", "exit", "q":
		return true, nil

	case "help", "?":
		c.printHelp()

	case "off":
		return false, c.client.SetState(protocol.CmdOff)

	case "cal", "home":
		return false, c.client.SetState(protocol.CmdCalibration)

	case "on":
		return false, c.client.SetState(protocol.CmdOn)

	case "clear":
		return false, c.client.SetState(protocol.CmdClearError)

	case "move":
		return false, c.move(args[1:])

	case "status":
		c.printStatus()

	case "wait":
		return false, c.wait(ctx, args[1:])

	case "watch":
		return false, c.watch(ctx, args[1:])

	default:
		return false, errors.Errorf("unknown command %q (type 'help' for available commands)", args[0])
	}
	return false, nil
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, "\nAvailable commands:")
	fmt.Fprintln(c.out, "  help                 - Show this help message")
	fmt.Fprintln(c.out, "  on | off | cal       - Request a controller state")
	fmt.Fprintln(c.out, "  clear                - Clear a latched error")
	fmt.Fprintln(c.out, "  move X Y [SX] [SY]   - Move to X/Y mm with speed classes 0..3")
	fmt.Fprintln(c.out, "  status               - Print the last status report")
	fmt.Fprintln(c.out, "  wait STATE [SECS]    - Wait for off/calibration/on/error")
	fmt.Fprintln(c.out, "  watch [SECS]         - Print status reports as they arrive")
	fmt.Fprintln(c.out, "  quit/exit/q          - Exit the program")
	fmt.Fprintln(c.out)
}

func (c *console) move(args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return errors.New("usage: move X Y [SX] [SY]")
	}
	var v [4]uint64
	limits := [4]int{16, 16, 2, 2}
	for i, a := range args {
		n, err := strconv.ParseUint(a, 10, limits[i])
		if err != nil {
			return errors.Wrapf(err, "argument %d", i+1)
		}
		v[i] = n
	}
	if v[2] > 3 || v[3] > 3 {
		return errors.New("speed class must be 0..3")
	}
	return c.client.Move(uint16(v[0]), uint16(v[1]), uint8(v[2]), uint8(v[3]))
}

func (c *console) printStatus() {
	st, at, ok := c.client.LastStatus()
	if !ok {
		fmt.Fprintln(c.out, "No status received yet")
		return
	}
	fmt.Fprintf(c.out, "%s (%s ago)\n", formatStatus(st), time.Since(at).Round(time.Millisecond))
}

func (c *console) wait(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: wait STATE [SECS]")
	}
	state, ok := parseState(args[0])
	if !ok {
		return errors.Errorf("unknown state %q", args[0])
	}
	timeout, err := seconds(args[1:], 10)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := c.client.WaitState(ctx, state)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatStatus(st))
	return nil
}

func (c *console) watch(ctx context.Context, args []string) error {
	d, err := seconds(args, 5)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch, unwatch := c.client.Watch()
	defer unwatch()
	for {
		select {
		case st := <-ch:
			fmt.Fprintln(c.out, formatStatus(st))
		case <-ctx.Done():
			return nil
		}
	}
}

func seconds(args []string, def float64) (time.Duration, error) {
	secs := def
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v <= 0 {
			return 0, errors.Errorf("bad duration %q", args[0])
		}
		secs = v
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func parseState(s string) (uint8, bool) {
	for code := uint8(protocol.StateOff); code <= protocol.StateError; code++ {
		if protocol.StateName(code) == s {
			return code, true
		}
	}
	return 0, false
}

func formatStatus(st protocol.Status) string {
	goal := "-"
	switch {
	case st.Goal&protocol.GoalHuman != 0 && st.Goal&protocol.GoalRobot != 0:
		goal = "both"
	case st.Goal&protocol.GoalHuman != 0:
		goal = "human"
	case st.Goal&protocol.GoalRobot != 0:
		goal = "robot"
	}
	return fmt.Sprintf("state=%s error=%s x=%dmm y=%dmm goal=%s debug=%d",
		protocol.StateName(st.State), protocol.ErrorName(st.Error), st.XMM, st.YMM, goal, st.Debug)
}
