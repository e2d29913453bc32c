package core

import (
	"errors"

	"paddle/config"
	"paddle/protocol"
)

// Motor indices
const (
	MotorX = iota
	MotorYLeft
	MotorYRight
	numMotors
)

// Scheduler order of the tasks due on the same tick
const (
	orderOverload uint8 = iota
	orderSpeed
	orderSupervisor
	orderControlX
	orderControlY
	orderOutputs
	orderGoal
	orderStatus
)

// motor groups one physical motor with its decoder and estimator
type motor struct {
	axis    *Axis
	decoder *QuadratureDecoder
	speed   *SpeedEstimator

	lastDir  Direction
	lastDuty uint8
	written  bool
}

// System is the complete paddle controller driven by a 1 kHz tick
type System struct {
	cfg *config.PaddleConfig
	hw  Hardware

	clock   Clock
	sched   *Scheduler
	vectors Vectors
	frames  *FrameRegistry
	events  EventRing

	motors    [numMotors]motor
	x         *Axis
	y         *YAxis
	xOverload *OverloadDetector
	homing    *Homing
	human     *GoalSensor
	robot     *GoalSensor
	bridge    *Bridge
	super     *Supervisor

	classes     [4]uint8
	outputFails uint32
}

// NewSystem builds the controller from cfg and binds it to hw.
// A nil cfg uses the default configuration.
func NewSystem(cfg *config.PaddleConfig, hw Hardware) (*System, error) {
	if err := hw.validate(); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultPaddleConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &System{
		cfg:     cfg,
		hw:      hw,
		sched:   NewScheduler(),
		frames:  NewFrameRegistry(),
		classes: cfg.Speed.Classes,
	}

	s.motors[MotorX] = s.newMotor(cfg.X, SrcX)
	s.motors[MotorYLeft] = s.newMotor(cfg.YLeft, SrcYLeft)
	s.motors[MotorYRight] = s.newMotor(cfg.YRight, SrcYRight)
	s.x = s.motors[MotorX].axis

	ol := cfg.Overload
	newDetector := func() *OverloadDetector {
		return &OverloadDetector{Floor: ol.FloorMMPerS, StrikeLimit: ol.StrikeLimit, ClearHoldoff: ol.ClearHoldoff}
	}
	s.xOverload = newDetector()
	s.y = NewYAxis(s.motors[MotorYLeft].axis, s.motors[MotorYRight].axis, cfg.Y.MismatchLimit, newDetector(), newDetector())

	s.homing = NewHoming(cfg.Homing.Speed, TicksFromMS(cfg.Homing.TimeoutMS))
	s.homing.OnZero = s.onZero

	if g := cfg.Goal.Human; g.Enabled {
		s.human = NewGoalSensor(hw.Pins, Pin(g.Pin), g.BlockedHigh, g.Threshold, g.LatchTicks)
	}
	if g := cfg.Goal.Robot; g.Enabled {
		s.robot = NewGoalSensor(hw.Pins, Pin(g.Pin), g.BlockedHigh, g.Threshold, g.LatchTicks)
	}

	offset := func(a config.AxisConfig) uint32 {
		return uint32(a.HomeOffsetMM) + uint32(cfg.PaddleRadiusMM)
	}
	s.bridge = NewBridge(hw.CAN,
		Scale{TicksPerRev: cfg.X.TicksPerRev, MMPerRev: cfg.X.MMPerRev, OffsetMM: offset(cfg.X)},
		Scale{TicksPerRev: cfg.YLeft.TicksPerRev, MMPerRev: cfg.YLeft.MMPerRev, OffsetMM: offset(cfg.YLeft)},
	)
	s.frames.Register(protocol.IDCommand, "command", protocol.FrameDataMax, s.bridge.HandleCommand)

	s.super = NewSupervisor(s.x, s.xOverload, s.y, s.homing, s.bridge, &s.events, &s.clock)
	s.super.SendNow = s.sendStatus

	if err := s.bindVectors(); err != nil {
		return nil, err
	}
	if err := s.initOutputs(); err != nil {
		return nil, err
	}
	s.schedule()

	DebugPrintln("[SYSTEM] ready, " + itoa(s.sched.Pending()) + " tasks")
	return s, nil
}

func (s *System) newMotor(c config.AxisConfig, source uint8) motor {
	pos := NewPositionCell(c.InitialTicks, c.MaxTicks)

	polarity := BHighForward
	if c.Polarity == config.PolarityBHighReverse {
		polarity = BHighReverse
	}
	dec := NewQuadratureDecoder(s.hw.Pins, Pin(c.PhaseBPin), polarity, pos)
	if s.hw.Capture != nil && c.CaptureChannel >= 0 {
		dec.AttachEdgeTimer(s.hw.Capture, uint8(c.CaptureChannel), &s.clock)
	}

	params := AxisParams{
		Name:              c.Name,
		Source:            source,
		Channel:           PWMChannel(c.PWMChannel),
		LengthTicks:       c.LengthTicks,
		BoundaryTicks:     c.BoundaryTicks,
		HomeTicks:         c.HomeTicks,
		HomeSwitch:        Pin(c.HomeSwitchPin),
		HomeActiveHigh:    c.HomeActiveHigh,
		LimitSwitch:       Pin(c.LimitSwitchPin),
		HasLimitSwitch:    c.LimitSwitchPin >= 0,
		Deadband:          c.Deadband,
		MaxSpeed:          c.MaxSpeed,
		SlowDownThreshold: c.SlowDownThresholdTicks,
		SlowDownSpeed:     c.SlowDownSpeed,
		Gains: Gains{
			P:             c.GainP,
			PFactor:       c.GainPFactor,
			I:             c.GainI,
			IntegralLimit: c.IntegralLimit,
			SlewRate:      c.SlewRate,
		},
		Map: DutyMap{
			Neutral:  c.DutyNeutral,
			Gain:     c.DutyGain,
			Centered: c.DutyMode == config.DutyCentered,
		},
	}

	return motor{
		axis:    NewAxis(params, pos, s.hw.Pins),
		decoder: dec,
		speed:   NewSpeedEstimator(s.cfg.Speed.IntervalTicks, c.TicksPerRev, c.MMPerRev, pos.Load()),
	}
}

func (s *System) bindVectors() error {
	bindings := []struct {
		evt Event
		fn  func()
	}{
		{EvtEncoderX, s.motors[MotorX].decoder.OnEdge},
		{EvtEncoderYLeft, s.motors[MotorYLeft].decoder.OnEdge},
		{EvtEncoderYRight, s.motors[MotorYRight].decoder.OnEdge},
		{EvtCaptureOverflow, s.clock.Overflow},
	}
	for _, b := range bindings {
		if err := s.vectors.On(b.evt, b.fn); err != nil {
			return err
		}
	}
	return nil
}

// initOutputs programs the PWM periods and puts every bridge in Brake
func (s *System) initOutputs() error {
	for i := range s.motors {
		m := &s.motors[i]
		ch := m.axis.Params().Channel
		var period uint16
		switch i {
		case MotorX:
			period = s.cfg.X.PWMPeriod
		case MotorYLeft:
			period = s.cfg.YLeft.PWMPeriod
		default:
			period = s.cfg.YRight.PWMPeriod
		}
		if err := s.hw.PWM.SetPeriod(ch, period); err != nil {
			return errors.New(m.axis.Name() + ": pwm period: " + err.Error())
		}
	}
	s.writeOutputs()
	return nil
}

func (s *System) schedule() {
	interval := s.cfg.Speed.IntervalTicks
	status := TicksFromMS(s.cfg.CAN.StatusIntervalMS)
	if status == 0 {
		status = 1
	}

	s.sched.Every(interval, interval, orderOverload, s.checkOverload)
	s.sched.Every(interval, interval, orderSpeed, s.estimateSpeed)
	s.sched.Every(1, 1, orderSupervisor, s.supervise)
	s.sched.Every(1, 1, orderControlX, s.controlX)
	s.sched.Every(1, 1, orderControlY, s.controlY)
	s.sched.Every(1, 1, orderOutputs, s.writeOutputs)
	s.sched.Every(1, 1, orderGoal, s.filterGoals)
	s.sched.Every(status, status, orderStatus, s.periodicStatus)
}

// Tick advances the control clock by one tick and runs the due tasks
func (s *System) Tick() {
	s.sched.Dispatch(s.clock.Advance())
}

// Fire dispatches a peripheral event (interrupt context)
func (s *System) Fire(e Event) bool {
	return s.vectors.Fire(e)
}

// HandleFrame dispatches a received CAN frame
func (s *System) HandleFrame(id uint32, data []byte) error {
	return s.frames.Dispatch(id, data)
}

func (s *System) checkOverload() {
	now := s.clock.Now()
	if s.xOverload.Check(s.x) {
		s.events.Record(RecAxisFault, SrcX, now, s.x.Position.Load(), s.x.Error)
		DebugPrintln("[OVERLOAD] x")
	}
	if s.y.CheckOverload() {
		s.events.Record(RecAxisFault, SrcYLeft, now, s.y.Left.Position.Load(), s.y.Right.Position.Load())
		DebugPrintln("[OVERLOAD] y")
	}
}

func (s *System) estimateSpeed() {
	since := s.clock.Now() - s.cfg.Speed.IntervalTicks
	for i := range s.motors {
		m := &s.motors[i]
		m.axis.Speed = m.speed.Estimate(m.axis.Position.Load(), m.decoder.PeriodSince(since), CaptureHz)
	}
}

func (s *System) supervise() {
	if pc, ok := s.bridge.TakeCommand(); ok {
		s.applyCommand(pc)
	}
	s.super.Step()
}

func (s *System) applyCommand(pc PendingCommand) {
	s.x.Cmd = pc.XTicks
	if s.super.State() != StateCalibration {
		s.y.Left.Cmd = pc.YTicks
	}

	s.x.SetMaxSpeed(s.classes[pc.XClass&3])
	ySpeed := s.classes[pc.YClass&3]
	s.y.Left.SetMaxSpeed(ySpeed)
	s.y.Right.SetMaxSpeed(ySpeed)

	if pc.State != s.super.Command() {
		s.events.Record(RecCommand, SrcCAN, s.clock.Now(), int32(pc.State), int32(s.super.State()))
	}
	s.super.SetCommand(pc.State)
}

func (s *System) controlX() {
	s.x.Control()
}

func (s *System) controlY() {
	before := s.y.Fault()
	s.y.Control()
	if before == YFaultNone && s.y.Fault() == YFaultLrMismatch {
		s.events.Record(RecMismatch, SrcYLeft, s.clock.Now(), s.y.LRError, s.y.MismatchLimit)
		DebugPrintln("[SYNC] left/right mismatch " + itoa(int(s.y.LRError)))
	}
}

// writeOutputs pushes changed drive states to the bridge and PWM drivers
func (s *System) writeOutputs() {
	for i := range s.motors {
		m := &s.motors[i]
		dir, duty := m.axis.Dir(), m.axis.Duty()
		if m.written && dir == m.lastDir && duty == m.lastDuty {
			continue
		}
		ch := m.axis.Params().Channel
		if err := s.hw.Bridge.SetDirection(ch, dir); err != nil {
			s.outputFails++
			continue
		}
		if err := s.hw.PWM.SetDuty(ch, duty); err != nil {
			s.outputFails++
			continue
		}
		m.lastDir, m.lastDuty, m.written = dir, duty, true
	}
}

// SampleGoals reads the goal pins into their filter rings. Call it
// GoalSamplesPerTick times per tick from a sampling timer; without one the
// filter samples once per tick.
func (s *System) SampleGoals() {
	for _, g := range [2]*GoalSensor{s.human, s.robot} {
		if g != nil {
			g.Sample()
		}
	}
}

func (s *System) filterGoals() {
	for _, g := range [2]*GoalSensor{s.human, s.robot} {
		if g != nil {
			g.Filter()
		}
	}
}

func (s *System) periodicStatus() {
	s.sendStatus()
}

// sendStatus transmits a status frame now
func (s *System) sendStatus() {
	suppressed := s.bridge.Error() != ErrNone
	if !s.bridge.SendStatus(s.Status()) && !suppressed {
		s.events.Record(RecCANTxFail, SrcCAN, s.clock.Now(), int32(s.bridge.LastResult()), 0)
		DebugPrintln("[CAN] status tx failed: " + s.bridge.Error().String())
	}
}

// Status builds the current status report
func (s *System) Status() protocol.Status {
	var xTicks, yTicks int32
	Critical(func() {
		xTicks = s.x.Position.Load()
		yTicks = s.y.Left.Position.Load()
	})

	var goal uint8
	// One goal at a time, human first
	if s.human != nil && s.human.Blocked() {
		goal = protocol.GoalHuman
	} else if s.robot != nil && s.robot.Blocked() {
		goal = protocol.GoalRobot
	}

	lr := abs32(s.y.LRError)
	if lr > 0xFF {
		lr = 0xFF
	}

	return protocol.Status{
		XMM:   s.bridge.XScale.ToMM(xTicks),
		YMM:   s.bridge.YScale.ToMM(yTicks),
		Goal:  goal & protocol.GoalMask,
		State: uint8(s.super.State()),
		Error: uint8(s.super.Error()),
		Debug: uint8(lr),
	}
}

func (s *System) onZero(a *Axis) {
	for i := range s.motors {
		if s.motors[i].axis == a {
			s.motors[i].speed.Reset(a.Position.Load())
		}
	}
}

// Clock returns the control clock
func (s *System) Clock() *Clock { return &s.clock }

// Vectors returns the event vector table, for binding board-specific sources
func (s *System) Vectors() *Vectors { return &s.vectors }

// Frames returns the CAN frame registry
func (s *System) Frames() *FrameRegistry { return s.frames }

// Events returns the event ring
func (s *System) Events() *EventRing { return &s.events }

// Supervisor returns the state machine
func (s *System) Supervisor() *Supervisor { return s.super }

// Bridge returns the CAN bridge
func (s *System) Bridge() *Bridge { return s.bridge }

// X returns the X axis
func (s *System) X() *Axis { return s.x }

// Y returns the Y pair
func (s *System) Y() *YAxis { return s.y }

// Homing returns the homing sequencer
func (s *System) Homing() *Homing { return s.homing }

// Decoder returns the decoder of motor i (MotorX, MotorYLeft, MotorYRight)
func (s *System) Decoder(i int) *QuadratureDecoder { return s.motors[i].decoder }

// OutputFailures returns the number of rejected PWM/bridge writes
func (s *System) OutputFailures() uint32 { return s.outputFails }
