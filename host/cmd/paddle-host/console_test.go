package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paddle/host/link"
	"paddle/host/master"
	"paddle/protocol"
)

func newTestConsole(t *testing.T) (*console, link.Link, *bytes.Buffer) {
	t.Helper()
	host, paddle := link.Pipe()
	t.Cleanup(func() { host.Close() })
	out := &bytes.Buffer{}
	return &console{client: master.NewClient(host, zerolog.Nop()), out: out}, paddle, out
}

func lastCommand(t *testing.T, l link.Link) protocol.Command {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := l.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	cmd, err := protocol.DecodeCommand(f.Payload())
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	return cmd
}

func TestConsoleStateCommands(t *testing.T) {
	tests := []struct {
		cmd  string
		want uint8
	}{
		{"on", protocol.CmdOn},
		{"off", protocol.CmdOff},
		{"cal", protocol.CmdCalibration},
		{"clear", protocol.CmdClearError},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			c, paddle, _ := newTestConsole(t)
			if _, err := c.execute(context.Background(), []string{tt.cmd}); err != nil {
				t.Fatalf("execute failed: %v", err)
			}
			if got := lastCommand(t, paddle).State; got != tt.want {
				t.Errorf("Expected state %d, got %d", tt.want, got)
			}
		})
	}
}

func TestConsoleMove(t *testing.T) {
	c, paddle, _ := newTestConsole(t)
	if _, err := c.execute(context.Background(), []string{"move", "300", "120", "2"}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	cmd := lastCommand(t, paddle)
	if cmd.XMM != 300 || cmd.YMM != 120 || cmd.XSpeed != 2 || cmd.YSpeed != 0 {
		t.Errorf("Expected 300/120 classes 2/0, got %+v", cmd)
	}
}

func TestConsoleMoveErrors(t *testing.T) {
	c, _, _ := newTestConsole(t)
	for _, args := range [][]string{
		{"move"},
		{"move", "1"},
		{"move", "x", "1"},
		{"move", "1", "1", "4"},
		{"move", "70000", "1"},
	} {
		if _, err := c.execute(context.Background(), args); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}

func TestConsoleQuitAndUnknown(t *testing.T) {
	c, _, _ := newTestConsole(t)
	quit, err := c.execute(context.Background(), []string{"q"})
	if !quit || err != nil {
		t.Errorf("Expected quit, got %v/%v", quit, err)
	}
	if _, err := c.execute(context.Background(), []string{"bogus"}); err == nil {
		t.Error("Expected error for unknown command")
	}
}

func TestConsoleStatus(t *testing.T) {
	c, _, out := newTestConsole(t)
	c.execute(context.Background(), []string{"status"})
	if !strings.Contains(out.String(), "No status") {
		t.Errorf("Expected no-status message, got %q", out.String())
	}
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(protocol.Status{XMM: 10, YMM: 20, Goal: protocol.GoalRobot, State: protocol.StateError, Error: protocol.ErrYLrMismatch, Debug: 7})
	want := "state=error error=y_lr_mismatch x=10mm y=20mm goal=robot debug=7"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestParseState(t *testing.T) {
	if code, ok := parseState("calibration"); !ok || code != protocol.StateCalibration {
		t.Errorf("Expected calibration, got %d/%v", code, ok)
	}
	if _, ok := parseState("idle"); ok {
		t.Error("Expected idle to be rejected")
	}
}
