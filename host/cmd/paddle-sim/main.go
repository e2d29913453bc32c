package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"paddle/config"
	"paddle/core"
	"paddle/host/link"
	"paddle/host/master"
	"paddle/host/sim"
	"paddle/protocol"
)

var (
	iface      = flag.String("iface", "", "Serve the controller on this SocketCAN interface (e.g. vcan0)")
	device     = flag.String("device", "", "Serve the controller through an SLCAN adapter")
	configFile = flag.String("config", "", "Controller configuration (JSON)")
	scenario   = flag.Bool("scenario", false, "Run the built-in home/move/goal scenario and exit")
	verbose    = flag.Bool("verbose", false, "Enable debug logging and firmware debug output")
)

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	fw := log.With().Str("src", "firmware").Logger()
	core.SetDebugWriter(func(s string) { fw.Debug().Msg(s) })
	core.SetDebugEnabled(*verbose)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	bench, err := sim.NewBench(cfg, sim.DefaultModel(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("bench")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *scenario {
		if err := runScenario(ctx, bench); err != nil {
			log.Fatal().Err(err).Msg("scenario failed")
		}
		log.Info().Msg("scenario passed")
		return
	}

	if *iface == "" && *device == "" {
		*iface = "vcan0"
	}
	l, err := link.Open(link.Options{
		Interface: *iface,
		Device:    *device,
		Receive:   []uint32{protocol.IDCommand},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer l.Close()

	log.Info().Str("iface", *iface).Str("device", *device).Msg("simulated paddle controller running")
	if err := bench.Run(ctx, l); err != nil {
		log.Error().Err(err).Msg("bench stopped")
	}
	bench.System.Events().Dump()
}

func loadConfig(path string) (*config.PaddleConfig, error) {
	if path == "" {
		return config.DefaultPaddleConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return cfg, nil
}

// runScenario drives the simulated controller through an in-process link
// the way the table's master controller would
func runScenario(ctx context.Context, bench *sim.Bench) error {
	host, paddle := link.Pipe()
	defer host.Close()

	client := master.NewClient(host, log.Logger.With().Str("src", "master").Logger())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go bench.Run(ctx, paddle)
	go client.Run(ctx)
	go client.Repeat(ctx, 50*time.Millisecond)

	step := func(name string, timeout time.Duration, fn func(context.Context) error) error {
		log.Info().Msg(name)
		sctx, scancel := context.WithTimeout(ctx, timeout)
		defer scancel()
		return errors.Wrap(fn(sctx), name)
	}

	if err := step("homing", 15*time.Second, func(ctx context.Context) error {
		if err := client.SetState(protocol.CmdCalibration); err != nil {
			return err
		}
		_, err := client.WaitState(ctx, protocol.StateOn)
		return err
	}); err != nil {
		return err
	}

	targets := [][2]uint16{{200, 150}, {350, 80}, {120, 200}}
	for _, tgt := range targets {
		tgt := tgt
		if err := step("move", 3*time.Second, func(ctx context.Context) error {
			if err := client.Move(tgt[0], tgt[1], 2, 2); err != nil {
				return err
			}
			<-ctx.Done()
			st, _, _ := client.LastStatus()
			log.Info().
				Uint16("x_target", tgt[0]).Uint16("y_target", tgt[1]).
				Uint16("x_mm", st.XMM).Uint16("y_mm", st.YMM).
				Msg("reached")
			if st.Error != protocol.ErrNone {
				return errors.Errorf("controller error %s", protocol.ErrorName(st.Error))
			}
			return nil
		}); err != nil {
			return err
		}
	}

	bench.Plant.Goal(bench.Config().Goal.Human, 20*time.Millisecond)
	if err := step("goal", time.Second, func(ctx context.Context) error {
		ch, unwatch := client.Watch()
		defer unwatch()
		for {
			select {
			case st := <-ch:
				if st.Goal&protocol.GoalHuman != 0 {
					return nil
				}
			case <-ctx.Done():
				return errors.New("goal not reported")
			}
		}
	}); err != nil {
		return err
	}

	return step("shutdown", 2*time.Second, func(ctx context.Context) error {
		if err := client.SetState(protocol.CmdOff); err != nil {
			return err
		}
		_, err := client.WaitState(ctx, protocol.StateOff)
		return err
	})
}
