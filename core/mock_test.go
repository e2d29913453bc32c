package core

// MockPins is a test implementation of PinReader
type MockPins struct {
	levels map[Pin]bool
}

func NewMockPins() *MockPins {
	return &MockPins{levels: make(map[Pin]bool)}
}

func (m *MockPins) ReadPin(pin Pin) bool {
	return m.levels[pin]
}

func (m *MockPins) Set(pin Pin, level bool) {
	m.levels[pin] = level
}

// MockPWM records periods and duties per channel
type MockPWM struct {
	periods map[PWMChannel]uint16
	duties  map[PWMChannel]uint8
	writes  int
}

func NewMockPWM() *MockPWM {
	return &MockPWM{
		periods: make(map[PWMChannel]uint16),
		duties:  make(map[PWMChannel]uint8),
	}
}

func (m *MockPWM) SetPeriod(ch PWMChannel, ticks uint16) error {
	m.periods[ch] = ticks
	return nil
}

func (m *MockPWM) SetDuty(ch PWMChannel, duty uint8) error {
	m.duties[ch] = duty
	m.writes++
	return nil
}

// MockBridge records the direction history per channel
type MockBridge struct {
	dirs    map[PWMChannel]Direction
	history map[PWMChannel][]Direction
}

func NewMockBridge() *MockBridge {
	return &MockBridge{
		dirs:    make(map[PWMChannel]Direction),
		history: make(map[PWMChannel][]Direction),
	}
}

func (m *MockBridge) SetDirection(ch PWMChannel, dir Direction) error {
	m.dirs[ch] = dir
	m.history[ch] = append(m.history[ch], dir)
	return nil
}

type sentFrame struct {
	id   uint32
	data []byte
}

// MockCAN records transmitted frames and returns a configurable result
type MockCAN struct {
	frames []sentFrame
	result TxResult
	calls  int
}

func (m *MockCAN) Transmit(id uint32, data []byte) TxResult {
	m.calls++
	if m.result != TxOK {
		return m.result
	}
	m.frames = append(m.frames, sentFrame{id: id, data: append([]byte(nil), data...)})
	return TxOK
}

func (m *MockCAN) last() (sentFrame, bool) {
	if len(m.frames) == 0 {
		return sentFrame{}, false
	}
	return m.frames[len(m.frames)-1], true
}

// MockCapture returns fixed capture values per channel
type MockCapture struct {
	values [4]uint16
}

func (m *MockCapture) Capture(ch uint8) uint16 {
	return m.values[ch]
}

type mockHardware struct {
	pins    *MockPins
	pwm     *MockPWM
	bridge  *MockBridge
	can     *MockCAN
	capture *MockCapture
}

func newMockHardware() *mockHardware {
	return &mockHardware{
		pins:    NewMockPins(),
		pwm:     NewMockPWM(),
		bridge:  NewMockBridge(),
		can:     &MockCAN{},
		capture: &MockCapture{},
	}
}

func (m *mockHardware) hardware() Hardware {
	return Hardware{
		Pins:    m.pins,
		PWM:     m.pwm,
		Bridge:  m.bridge,
		Capture: m.capture,
		CAN:     m.can,
	}
}

// testParams returns X-like axis settings with a unity duty map offset
func testParams() AxisParams {
	return AxisParams{
		Name:           "test",
		Source:         SrcX,
		Channel:        0,
		LengthTicks:    8000,
		BoundaryTicks:  150,
		HomeTicks:      0,
		HomeSwitch:     10,
		HomeActiveHigh: true,
		Deadband:       2,
		MaxSpeed:       100,
		Gains:          Gains{P: 2, PFactor: 1, IntegralLimit: 100},
		Map:            DutyMap{Neutral: 50, Gain: 50, Centered: true},
	}
}

func newTestAxis(params AxisParams, pos int32, pins PinReader) *Axis {
	a := NewAxis(params, NewPositionCell(pos, 0xFFFF), pins)
	a.Enable()
	return a
}
