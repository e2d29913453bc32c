package core

// HomingPhase is the state of the homing sequencer
type HomingPhase uint8

const (
	HomingIdle HomingPhase = iota
	HomingSeekStart
	HomingWaitSwitch
	HomingZeroed
	HomingFailed
)

// String returns the phase name
func (p HomingPhase) String() string {
	switch p {
	case HomingIdle:
		return "idle"
	case HomingSeekStart:
		return "seek_start"
	case HomingWaitSwitch:
		return "wait_switch"
	case HomingZeroed:
		return "zeroed"
	case HomingFailed:
		return "failed"
	}
	return "phase_" + itoa(int(p))
}

// Homing capacity: the Y pair, then X
const (
	maxHomingStages = 2
	maxHomingMotors = 2 // Per stage
)

type savedMode struct {
	axis *Axis
	mode CtrlMode
}

// Homing drives axes into their home switches and zeroes them.
// Stages run in order; every motor of a stage must reach its switch
// before the next stage starts. Advanced once per control tick.
type Homing struct {
	Speed   uint8
	Timeout uint32 // Ticks allowed per stage

	// OnZero is called after a motor's position is reset
	OnZero func(a *Axis)

	phase   HomingPhase
	stages  [maxHomingStages][maxHomingMotors]*Axis
	counts  [maxHomingStages]int
	nStages int
	stage   int
	elapsed uint32
	done    [maxHomingMotors]bool
	saved   [maxHomingStages * maxHomingMotors]savedMode
	nSaved  int
}

// NewHoming creates an idle sequencer
func NewHoming(speed uint8, timeout uint32) *Homing {
	return &Homing{Speed: speed, Timeout: timeout}
}

// Phase returns the current phase
func (h *Homing) Phase() HomingPhase {
	return h.phase
}

// Stage returns the index of the stage being homed
func (h *Homing) Stage() int {
	return h.stage
}

// Start begins homing. Every motor is switched to Manual and braked;
// prior modes are restored when the sequence ends. Stages and motors
// beyond the sequencer's capacity are ignored.
func (h *Homing) Start(stages ...[]*Axis) {
	h.stage = 0
	h.elapsed = 0
	h.done = [maxHomingMotors]bool{}
	h.nStages = 0
	h.nSaved = 0

	for _, stage := range stages {
		if h.nStages == maxHomingStages {
			DebugPrintln("[HOMING] too many stages")
			break
		}
		n := 0
		for _, a := range stage {
			if n == maxHomingMotors {
				DebugPrintln("[HOMING] too many motors in stage")
				break
			}
			h.stages[h.nStages][n] = a
			n++
			h.saved[h.nSaved] = savedMode{axis: a, mode: a.Mode}
			h.nSaved++
			a.Mode = Manual
			a.Manual(Brake, 0)
		}
		h.counts[h.nStages] = n
		h.nStages++
	}

	h.phase = HomingSeekStart
	if h.nStages == 0 {
		h.finish(HomingZeroed)
	}
}

// motors returns the motors of the current stage
func (h *Homing) motors() []*Axis {
	return h.stages[h.stage][:h.counts[h.stage]]
}

// Tick advances the sequencer by one control tick
func (h *Homing) Tick() HomingPhase {
	switch h.phase {
	case HomingSeekStart:
		for _, a := range h.motors() {
			a.Manual(Reverse, h.Speed)
		}
		h.elapsed = 0
		h.phase = HomingWaitSwitch

	case HomingWaitSwitch:
		h.elapsed++
		h.waitSwitch()
	}
	return h.phase
}

func (h *Homing) waitSwitch() {
	all := true
	for i, a := range h.motors() {
		if h.done[i] {
			continue
		}
		if !a.HomePressed() {
			a.Manual(Reverse, h.Speed)
			all = false
			continue
		}

		a.Manual(Brake, 0)
		home := a.params.HomeTicks
		Critical(func() {
			a.Position.Store(home)
		})
		a.Cmd = uint32(a.Position.Load())
		h.done[i] = true
		if h.OnZero != nil {
			h.OnZero(a)
		}
		DebugPrintln("[HOMING] " + a.params.Name + " zeroed")
	}

	if all {
		h.stage++
		h.done = [maxHomingMotors]bool{}
		if h.stage >= h.nStages {
			h.finish(HomingZeroed)
		} else {
			h.phase = HomingSeekStart
		}
		return
	}

	if h.elapsed > h.Timeout {
		DebugPrintln("[HOMING] timeout in stage " + itoa(h.stage))
		h.finish(HomingFailed)
	}
}

// finish brakes every motor and restores the saved modes.
// Motors disabled by a fault while homing stay disabled.
func (h *Homing) finish(phase HomingPhase) {
	for _, s := range h.saved[:h.nSaved] {
		if s.axis.Mode != Manual {
			continue
		}
		s.axis.Manual(Brake, 0)
		s.axis.Mode = s.mode
	}
	h.saved = [maxHomingStages * maxHomingMotors]savedMode{}
	h.nSaved = 0
	h.phase = phase
}

// Abort stops a running sequence and returns to Idle
func (h *Homing) Abort() {
	if h.Running() {
		h.finish(HomingIdle)
	}
	h.phase = HomingIdle
}

// Running reports whether a sequence is in progress
func (h *Homing) Running() bool {
	return h.phase == HomingSeekStart || h.phase == HomingWaitSwitch
}

// Reset returns a finished sequencer to Idle
func (h *Homing) Reset() {
	if !h.Running() {
		h.phase = HomingIdle
	}
}
