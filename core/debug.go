package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// EventRecord captures a supervisory event for post-mortem analysis
type EventRecord struct {
	Kind   uint8  // Event kind code (Rec*)
	Source uint8  // Axis or subsystem code
	Clock  uint32 // Control tick at event
	Value1 int32  // Context-dependent value
	Value2 int32  // Context-dependent value
}

// Event kind codes
const (
	RecStateEnter = 1 // Supervisor entered a state (Value1 = state)
	RecErrorLatch = 2 // System error latched (Value1 = error code)
	RecErrorClear = 3 // Errors cleared by command
	RecAxisFault  = 4 // Axis fault latched (Value1 = position, Value2 = error ticks)
	RecMismatch   = 5 // Y left/right divergence trip (Value1 = lr error)
	RecHoming     = 6 // Homing phase change (Value1 = phase)
	RecCANTxFail  = 7 // Status transmit failed (Value1 = tx result)
	RecCommand    = 8 // Command frame applied (Value1 = x cmd, Value2 = y cmd)
)

// Source codes
const (
	SrcSystem = 0
	SrcX      = 1
	SrcYLeft  = 2
	SrcYRight = 3
	SrcCAN    = 4
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

// EventRing is a fixed-size, non-blocking event log
type EventRing struct {
	ring [EventRingSize]EventRecord
	head uint8
}

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// Record captures an event in the ring buffer
func (r *EventRing) Record(kind, source uint8, clock uint32, value1, value2 int32) {
	idx := r.head
	r.ring[idx] = EventRecord{
		Kind:   kind,
		Source: source,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	r.head = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func (r *EventRing) Events() []EventRecord {
	out := make([]EventRecord, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.ring[(r.head+i)%EventRingSize]
		if evt.Kind == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// Last returns the most recent event
func (r *EventRing) Last() (EventRecord, bool) {
	evt := r.ring[(r.head+EventRingSize-1)%EventRingSize]
	return evt, evt.Kind != 0
}

// Dump writes the ring through the debug writer (call on shutdown/error)
func (r *EventRing) Dump() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range r.Events() {
		debugPrintln("[EVENTS] " + evt.String())
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// Clear empties the ring
func (r *EventRing) Clear() {
	for i := range r.ring {
		r.ring[i] = EventRecord{}
	}
	r.head = 0
}

// String renders an event record on one line
func (e EventRecord) String() string {
	var name string
	switch e.Kind {
	case RecStateEnter:
		name = "STATE " + State(e.Value1).String()
	case RecErrorLatch:
		name = "ERROR " + SystemError(e.Value1).String()
	case RecErrorClear:
		name = "CLEAR"
	case RecAxisFault:
		name = "AXIS_FAULT"
	case RecMismatch:
		name = "LR_MISMATCH"
	case RecHoming:
		name = "HOMING " + HomingPhase(e.Value1).String()
	case RecCANTxFail:
		name = "CAN_TX_FAIL"
	case RecCommand:
		name = "COMMAND"
	default:
		name = "UNKNOWN"
	}

	return name +
		" src=" + itoa(int(e.Source)) +
		" clock=" + utoa(e.Clock) +
		" v1=" + itoa(int(e.Value1)) +
		" v2=" + itoa(int(e.Value2))
}
