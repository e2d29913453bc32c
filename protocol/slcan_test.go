package protocol

import "testing"

func TestEncodeSLCAN(t *testing.T) {
	f, err := NewFrame(0x101, []byte{0xF4, 0x01, 0x2C, 0x01, 0x00, 0x02, 0x00, 0x00})
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	got := string(EncodeSLCAN(f))
	want := "t1018F4012C0100020000\r"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDecodeSLCAN(t *testing.T) {
	tests := []struct {
		line    string
		wantErr bool
		wantID  uint32
		wantLen uint8
	}{
		{"t1000", false, 0x100, 0},
		{"t10020102", false, 0x100, 2},
		{"t1fF1ab", false, 0x1FF, 1},
		{"t100", true, 0, 0},
		{"t1009", true, 0, 0},
		{"t10021", true, 0, 0},
		{"T0000010000", true, 0, 0},
		{"t10g0", true, 0, 0},
	}

	for _, tt := range tests {
		f, err := DecodeSLCAN([]byte(tt.line))
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: expected error=%v, got %v", tt.line, tt.wantErr, err)
			continue
		}
		if tt.wantErr {
			continue
		}
		if f.ID != tt.wantID || f.Len != tt.wantLen {
			t.Errorf("%q: expected id 0x%x len %d, got 0x%x len %d", tt.line, tt.wantID, tt.wantLen, f.ID, f.Len)
		}
	}
}

func TestSLCANRoundTrip(t *testing.T) {
	in := CommandFrame(Command{XMM: 640, YMM: 220, XSpeed: 2, YSpeed: 1, State: CmdOn})

	line := EncodeSLCAN(in)
	out, err := DecodeSLCAN(line[:len(line)-1])
	if err != nil {
		t.Fatalf("DecodeSLCAN failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected %v, got %v", in, out)
	}
}

func TestSLCANBitrate(t *testing.T) {
	cmd, err := SLCANBitrate(Bitrate)
	if err != nil {
		t.Fatalf("SLCANBitrate failed: %v", err)
	}
	if string(cmd) != "S4\r" {
		t.Errorf("Expected S4, got %q", cmd)
	}
	if _, err := SLCANBitrate(42); err != ErrSLCANBitrate {
		t.Errorf("Expected ErrSLCANBitrate, got %v", err)
	}
}

func TestSLCANReader(t *testing.T) {
	r := NewSLCANReader(64)

	// Partial line first, then the rest plus an ack and a nack
	r.Feed([]byte("t1012AB"))
	if _, ok, _ := r.Next(); ok {
		t.Fatal("Expected no complete line yet")
	}
	r.Feed([]byte("CD\r\rz\r\x07"))

	kinds := []SLCANKind{SLCANFrame, SLCANAck, SLCANTxAck, SLCANNack}
	for i, want := range kinds {
		msg, ok, err := r.Next()
		if !ok || err != nil {
			t.Fatalf("line %d: expected message, got ok=%v err=%v", i, ok, err)
		}
		if msg.Kind != want {
			t.Errorf("line %d: expected kind %d, got %d", i, want, msg.Kind)
		}
		if i == 0 && (msg.Frame.ID != 0x101 || msg.Frame.Data[0] != 0xAB || msg.Frame.Data[1] != 0xCD) {
			t.Errorf("Unexpected frame %v", msg.Frame)
		}
	}

	if _, ok, _ := r.Next(); ok {
		t.Error("Expected reader to be drained")
	}
}

func TestSLCANReaderOverlongLine(t *testing.T) {
	r := NewSLCANReader(8)
	r.Feed([]byte("t1018000"))
	if _, _, err := r.Next(); err != ErrSLCANSyntax {
		t.Errorf("Expected ErrSLCANSyntax for overlong line, got %v", err)
	}
}

func TestFrameString(t *testing.T) {
	f := Frame{ID: 0x101, Len: 2, Data: [8]byte{0xF4, 0x01}}
	if f.String() != "101#F401" {
		t.Errorf("Expected 101#F401, got %s", f.String())
	}
	if _, err := NewFrame(0x800, nil); err != ErrBadID {
		t.Errorf("Expected ErrBadID, got %v", err)
	}
	if _, err := NewFrame(0x100, make([]byte, 9)); err != ErrFrameTooLong {
		t.Errorf("Expected ErrFrameTooLong, got %v", err)
	}
}
