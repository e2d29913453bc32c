package sim

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"paddle/config"
	"paddle/core"
	"paddle/host/link"
	"paddle/protocol"
)

// TickPeriod is the simulated control tick
const TickPeriod = time.Second / core.TickHz

const rxQueue = 32

// Bench runs the controller firmware against a simulated plant
type Bench struct {
	Plant  *Plant
	System *core.System

	cfg *config.PaddleConfig
	log zerolog.Logger
	rx  chan protocol.Frame

	lastState core.State
	lastError core.SystemError
}

// NewBench builds a plant and a controller wired to it
func NewBench(cfg *config.PaddleConfig, model Model, logger zerolog.Logger) (*Bench, error) {
	if cfg == nil {
		cfg = config.DefaultPaddleConfig()
	}
	plant := NewPlant(cfg, model)
	sys, err := core.NewSystem(cfg, plant.Hardware())
	if err != nil {
		return nil, errors.Wrap(err, "sim: build controller")
	}
	plant.Attach(sys.Fire)

	return &Bench{
		Plant:  plant,
		System: sys,
		cfg:    cfg,
		log:    logger,
		rx:     make(chan protocol.Frame, rxQueue),
	}, nil
}

// Config returns the controller configuration
func (b *Bench) Config() *config.PaddleConfig {
	return b.cfg
}

// Deliver queues a received frame for the next step
func (b *Bench) Deliver(f protocol.Frame) bool {
	select {
	case b.rx <- f:
		return true
	default:
		return false
	}
}

// Command queues a command frame for the next step
func (b *Bench) Command(c protocol.Command) bool {
	return b.Deliver(protocol.CommandFrame(c))
}

// Step advances the bench by one control tick
func (b *Bench) Step() {
drain:
	for {
		select {
		case f := <-b.rx:
			if err := b.System.HandleFrame(f.ID, f.Payload()); err != nil {
				b.log.Debug().Err(err).Str("frame", f.String()).Msg("frame rejected")
			}
		default:
			break drain
		}
	}

	// Goal beams are sampled several times per tick, as on the board
	for i := 0; i < core.GoalSamplesPerTick; i++ {
		b.Plant.Step(TickPeriod / core.GoalSamplesPerTick)
		b.System.SampleGoals()
	}
	b.System.Tick()
	b.report()
}

// StepN advances n ticks
func (b *Bench) StepN(n int) {
	for i := 0; i < n; i++ {
		b.Step()
	}
}

// StepUntil advances until cond holds or limit ticks pass. Returns cond's final value.
func (b *Bench) StepUntil(limit int, cond func() bool) bool {
	for i := 0; i < limit; i++ {
		if cond() {
			return true
		}
		b.Step()
	}
	return cond()
}

func (b *Bench) report() {
	sup := b.System.Supervisor()
	state, serr := sup.State(), sup.Error()
	if state == b.lastState && serr == b.lastError {
		return
	}
	b.lastState, b.lastError = state, serr

	ev := b.log.Info()
	if serr != core.ErrNone {
		ev = b.log.Warn()
	}
	ev.Str("state", state.String()).
		Str("error", serr.String()).
		Dur("t", b.Plant.Elapsed()).
		Float64("x_mm", b.Plant.PositionMM(core.MotorX)).
		Float64("y_mm", b.Plant.PositionMM(core.MotorYLeft)).
		Msg("controller state")
}

// Run connects the bench to l and steps it in real time until ctx is done
func (b *Bench) Run(ctx context.Context, l link.Link) error {
	if l != nil {
		b.Plant.CAN().Connect(l)
		go b.receive(ctx, l)
	}

	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.Step()
		}
	}
}

func (b *Bench) receive(ctx context.Context, l link.Link) {
	for {
		f, err := l.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.log.Error().Err(err).Msg("link receive")
			}
			return
		}
		if !b.Deliver(f) {
			b.log.Warn().Str("frame", f.String()).Msg("rx queue full, frame dropped")
		}
	}
}
