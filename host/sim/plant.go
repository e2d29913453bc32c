// Package sim models the paddle mechanics well enough to run the
// controller firmware on a PC: three DC motors with quadrature
// encoders and home switches, the goal beams, and the CAN controller.
package sim

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"paddle/config"
	"paddle/core"
)

const brakeFactor = 4

// Model holds the physical parameters of the simulated table
type Model struct {
	MaxSpeedMMPerS float64       // Carriage speed at full drive
	TimeConstant   time.Duration // First-order lag from drive to speed
	HardStopMM     float64       // Travel past either end before the carriage stalls
	StartMM        [3]float64    // Initial carriage positions, measured from the home switch
}

// DefaultModel returns a table with carriages parked 15 mm off their switches
func DefaultModel() Model {
	return Model{
		MaxSpeedMMPerS: 1000,
		TimeConstant:   8 * time.Millisecond,
		HardStopMM:     5,
		StartMM:        [3]float64{15, 15, 15},
	}
}

// simMotor is one carriage drive
type simMotor struct {
	cfg   config.AxisConfig
	event core.Event
	scale float64 // ticks per mm

	fwdLevel bool // phase B level seen while counting up

	pos      float64 // ticks from the home switch
	vel      float64 // ticks per second
	dir      core.Direction
	duty     uint8
	stalled  bool
	minTicks float64
	maxTicks float64
}

// edge is one encoder rising edge inside a step
type edge struct {
	at    float64 // seconds into the step
	motor int
	up    bool
}

// Plant implements the controller's hardware interfaces against a
// simulated table. Edges and capture overflows are delivered through
// the fire callback.
type Plant struct {
	mu     sync.Mutex
	model  Model
	motors [3]*simMotor
	byChan map[core.PWMChannel]*simMotor
	levels map[core.Pin]bool
	period map[core.PWMChannel]uint16

	fire     func(core.Event) bool
	now      float64 // seconds
	captures map[uint8]uint16
	edges    []edge
	goals    []goalPulse
	home     [3]core.Pin
	homeHigh [3]bool
	limit    [3]int     // Far limit switch pin, -1 when absent
	limitAt  [3]float64 // Ticks from home where the far switch closes

	can *CAN
}

type goalPulse struct {
	pin     core.Pin
	restore bool
	until   float64
}

// NewPlant creates a plant for the given controller configuration
func NewPlant(cfg *config.PaddleConfig, model Model) *Plant {
	p := &Plant{
		model:    model,
		byChan:   make(map[core.PWMChannel]*simMotor),
		levels:   make(map[core.Pin]bool),
		period:   make(map[core.PWMChannel]uint16),
		captures: make(map[uint8]uint16),
		can:      NewCAN(),
	}

	axes := [3]config.AxisConfig{cfg.X, cfg.YLeft, cfg.YRight}
	events := [3]core.Event{core.EvtEncoderX, core.EvtEncoderYLeft, core.EvtEncoderYRight}
	for i, a := range axes {
		scale := float64(a.TicksPerRev) / float64(a.MMPerRev)
		m := &simMotor{
			cfg:      a,
			event:    events[i],
			scale:    scale,
			fwdLevel: a.Polarity != config.PolarityBHighReverse,
			pos:      model.StartMM[i] * scale,
			minTicks: -model.HardStopMM * scale,
			maxTicks: float64(a.LengthTicks) + model.HardStopMM*scale,
		}
		p.motors[i] = m
		p.byChan[core.PWMChannel(a.PWMChannel)] = m
		p.home[i] = core.Pin(a.HomeSwitchPin)
		p.homeHigh[i] = a.HomeActiveHigh
		p.limit[i] = a.LimitSwitchPin
		p.limitAt[i] = float64(a.LengthTicks - a.BoundaryTicks)
	}

	// Idle goal beams read unblocked
	for _, g := range []config.GoalSensorConfig{cfg.Goal.Human, cfg.Goal.Robot} {
		if g.Enabled {
			p.levels[core.Pin(g.Pin)] = !g.BlockedHigh
		}
	}
	p.updateSwitches()
	return p
}

// Hardware returns the driver bundle for core.NewSystem
func (p *Plant) Hardware() core.Hardware {
	return core.Hardware{
		Pins:    p,
		PWM:     p,
		Bridge:  p,
		Capture: p,
		CAN:     p.can,
	}
}

// CAN returns the simulated CAN controller
func (p *Plant) CAN() *CAN {
	return p.can
}

// Attach sets the interrupt dispatch callback, normally System.Fire
func (p *Plant) Attach(fire func(core.Event) bool) {
	p.mu.Lock()
	p.fire = fire
	p.mu.Unlock()
}

// ReadPin implements core.PinReader
func (p *Plant) ReadPin(pin core.Pin) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[pin]
}

// SetPeriod implements core.PWMDriver
func (p *Plant) SetPeriod(ch core.PWMChannel, ticks uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byChan[ch]; !ok {
		return errChannel(ch)
	}
	p.period[ch] = ticks
	return nil
}

// SetDuty implements core.PWMDriver
func (p *Plant) SetDuty(ch core.PWMChannel, duty uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.byChan[ch]
	if !ok {
		return errChannel(ch)
	}
	if duty > 100 {
		duty = 100
	}
	m.duty = duty
	return nil
}

// SetDirection implements core.BridgeDriver
func (p *Plant) SetDirection(ch core.PWMChannel, dir core.Direction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.byChan[ch]
	if !ok {
		return errChannel(ch)
	}
	m.dir = dir
	return nil
}

// Capture implements core.CaptureTimer
func (p *Plant) Capture(ch uint8) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captures[ch]
}

// response is the fraction of a step change reached after secs
func response(secs, tc float64) float64 {
	if tc <= 0 {
		return 1
	}
	return 1 - math.Exp(-secs/tc)
}

// drive returns the commanded speed as a signed fraction of full scale
func (m *simMotor) drive() float64 {
	if m.dir == core.Brake || m.cfg.DutyGain == 0 {
		return 0
	}
	f := math.Abs(float64(m.duty)-float64(m.cfg.DutyNeutral)) / float64(m.cfg.DutyGain)
	if f > 1 {
		f = 1
	}
	if m.dir == core.Reverse {
		f = -f
	}
	return f
}

// Step advances the plant by dt and delivers the encoder edges and
// capture overflows that occurred, in time order.
func (p *Plant) Step(dt time.Duration) {
	p.mu.Lock()
	secs := dt.Seconds()
	p.edges = p.edges[:0]

	tc := p.model.TimeConstant.Seconds()
	for i, m := range p.motors {
		target := m.drive() * p.model.MaxSpeedMMPerS * m.scale
		if m.stalled {
			target = 0
		}
		lag := tc
		if m.dir == core.Brake {
			// A shorted bridge stops the motor faster than it spins up
			lag /= brakeFactor
		}
		m.vel += (target - m.vel) * response(secs, lag)

		next := m.pos + m.vel*secs
		if next < m.minTicks {
			next, m.vel = m.minTicks, 0
		}
		if next > m.maxTicks {
			next, m.vel = m.maxTicks, 0
		}
		p.collectEdges(i, m.pos, next, secs)
		m.pos = next
	}
	sort.Slice(p.edges, func(a, b int) bool { return p.edges[a].at < p.edges[b].at })

	start := p.now
	p.now += secs
	overflows := captureWraps(start, p.now)
	fire := p.fire
	edges := append([]edge(nil), p.edges...)
	p.mu.Unlock()

	oi := 0
	for _, e := range edges {
		t := start + e.at
		for oi < len(overflows) && overflows[oi] <= t {
			p.deliver(fire, core.EvtCaptureOverflow)
			oi++
		}
		p.edge(fire, e, t)
	}
	for ; oi < len(overflows); oi++ {
		p.deliver(fire, core.EvtCaptureOverflow)
	}

	p.mu.Lock()
	p.updateSwitches()
	p.expireGoals()
	p.mu.Unlock()
}

// collectEdges queues one edge per whole tick crossed between from and to
func (p *Plant) collectEdges(i int, from, to, secs float64) {
	a, b := math.Floor(from), math.Floor(to)
	if a == b {
		return
	}
	span := to - from
	if b > a {
		for k := a + 1; k <= b; k++ {
			p.edges = append(p.edges, edge{at: (k - from) / span * secs, motor: i, up: true})
		}
		return
	}
	for k := a; k > b; k-- {
		p.edges = append(p.edges, edge{at: (k - from) / span * secs, motor: i})
	}
}

// captureWraps returns the times the 16-bit capture counter wraps in (from, to]
func captureWraps(from, to float64) []float64 {
	var out []float64
	wrap := float64(core.CaptureRange) / core.CaptureHz
	for k := math.Floor(from/wrap) + 1; k*wrap <= to; k++ {
		out = append(out, k*wrap)
	}
	return out
}

// edge sets phase B, latches the capture counter and fires the encoder event
func (p *Plant) edge(fire func(core.Event) bool, e edge, t float64) {
	p.mu.Lock()
	m := p.motors[e.motor]
	level := m.fwdLevel
	if !e.up {
		level = !level
	}
	p.levels[core.Pin(m.cfg.PhaseBPin)] = level
	if m.cfg.CaptureChannel >= 0 {
		p.captures[uint8(m.cfg.CaptureChannel)] = uint16(uint64(t*core.CaptureHz) & 0xFFFF)
	}
	event := m.event
	p.mu.Unlock()

	p.deliver(fire, event)
}

func (p *Plant) deliver(fire func(core.Event) bool, e core.Event) {
	if fire != nil {
		fire(e)
	}
}

// updateSwitches drives each home switch from its carriage position
func (p *Plant) updateSwitches() {
	for i, m := range p.motors {
		pressed := m.pos <= 0
		p.levels[p.home[i]] = pressed == p.homeHigh[i]
		if p.limit[i] >= 0 {
			far := m.pos >= p.limitAt[i]
			p.levels[core.Pin(p.limit[i])] = far == p.homeHigh[i]
		}
	}
}

func (p *Plant) expireGoals() {
	kept := p.goals[:0]
	for _, g := range p.goals {
		if p.now >= g.until {
			p.levels[g.pin] = g.restore
			continue
		}
		kept = append(kept, g)
	}
	p.goals = kept
}

// Goal blocks a goal beam for d
func (p *Plant) Goal(g config.GoalSensorConfig, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pin := core.Pin(g.Pin)
	p.levels[pin] = g.BlockedHigh
	p.goals = append(p.goals, goalPulse{pin: pin, restore: !g.BlockedHigh, until: p.now + d.Seconds()})
}

// Stall jams or frees carriage i (core.MotorX, core.MotorYLeft, core.MotorYRight)
func (p *Plant) Stall(i int, stalled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.motors[i].stalled = stalled
}

// Push moves carriage i by mm without generating encoder edges,
// as when a belt skips
func (p *Plant) Push(i int, mm float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.motors[i]
	m.pos += mm * m.scale
	p.updateSwitches()
}

// PositionMM returns the true carriage position of motor i
func (p *Plant) PositionMM(i int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.motors[i]
	return m.pos / m.scale
}

// Output returns the bridge direction and duty last written to motor i
func (p *Plant) Output(i int) (core.Direction, uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.motors[i]
	return m.dir, m.duty
}

// Elapsed returns the simulated time
func (p *Plant) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.now * float64(time.Second))
}

func errChannel(ch core.PWMChannel) error {
	return errors.Errorf("sim: no motor on channel %d", ch)
}
