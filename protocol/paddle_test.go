package protocol

import "testing"

func TestStatusRoundTrip(t *testing.T) {
	in := Status{XMM: 500, YMM: 300, State: StateOn, Error: ErrNone}

	frame := StatusFrame(in)
	if frame.ID != IDStatus || frame.Len != 8 {
		t.Fatalf("Expected id 0x101 len 8, got 0x%x len %d", frame.ID, frame.Len)
	}

	out, err := DecodeStatus(frame.Payload())
	if err != nil {
		t.Fatalf("DecodeStatus failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestStatusLayout(t *testing.T) {
	b := EncodeStatus(Status{XMM: 0x01F4, YMM: 0x012C, Goal: GoalHuman | 0x03, State: StateError, Error: ErrXOverload, Debug: 7})

	want := [8]byte{0xF4, 0x01, 0x2C, 0x01, 0x10, 3, 2, 7}
	if b != want {
		t.Errorf("Expected % x, got % x", want, b)
	}
}

func TestCommandLayout(t *testing.T) {
	tests := []struct {
		name string
		data [8]byte
		want Command
	}{
		{
			name: "positions and state",
			data: [8]byte{0xE8, 0x03, 0x90, 0x01, 0x00, CmdOn, 0, 0},
			want: Command{XMM: 1000, YMM: 400, State: CmdOn},
		},
		{
			name: "speed classes",
			data: [8]byte{0, 0, 0, 0, 0x0E, CmdCalibration, 0, 0},
			want: Command{XSpeed: 2, YSpeed: 3, State: CmdCalibration},
		},
		{
			name: "upper bits of byte 4 ignored",
			data: [8]byte{0, 0, 0, 0, 0xF1, CmdClearError, 0, 0},
			want: Command{XSpeed: 1, YSpeed: 0, State: CmdClearError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand(tt.data[:])
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCommandEncodeMatchesDecode(t *testing.T) {
	c := Command{XMM: 123, YMM: 456, XSpeed: 3, YSpeed: 1, State: CmdOff}
	b := EncodeCommand(c)
	if b[4] != 0x07 {
		t.Errorf("Expected speed byte 0x07, got 0x%02x", b[4])
	}
	got, _ := DecodeCommand(b[:])
	if got != c {
		t.Errorf("Expected %+v, got %+v", c, got)
	}
}

func TestDecodeShortFrame(t *testing.T) {
	if _, err := DecodeCommand([]byte{1, 2, 3}); err != ErrShortFrame {
		t.Errorf("Expected ErrShortFrame, got %v", err)
	}
	if _, err := DecodeStatus(nil); err != ErrShortFrame {
		t.Errorf("Expected ErrShortFrame, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if StateName(StateCalibration) != "calibration" {
		t.Errorf("Unexpected state name %q", StateName(StateCalibration))
	}
	if ErrorName(ErrHomingFailed) != "homing_failed" {
		t.Errorf("Unexpected error name %q", ErrorName(ErrHomingFailed))
	}
	if ErrorName(99) != "unknown" {
		t.Errorf("Expected unknown for out-of-range code")
	}
}
