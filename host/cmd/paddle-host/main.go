package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"paddle/host/link"
	"paddle/host/master"
	"paddle/protocol"
)

var (
	iface   = flag.String("iface", "", "SocketCAN interface (e.g. can0)")
	device  = flag.String("device", "", "SLCAN adapter serial device (e.g. /dev/ttyACM0)")
	bitrate = flag.Uint("bitrate", protocol.Bitrate, "CAN bitrate for SLCAN adapters")
	repeat  = flag.Duration("repeat", 100*time.Millisecond, "Command repeat interval (0 disables)")
	verbose = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	if *iface == "" && *device == "" {
		*iface = "can0"
	}

	l, err := link.Open(link.Options{
		Interface: *iface,
		Device:    *device,
		Bitrate:   uint32(*bitrate),
		Receive:   []uint32{protocol.IDStatus},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}

	client := master.NewClient(l, log.Logger)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := client.Run(ctx); err != nil {
			log.Error().Err(err).Msg("link lost")
			stop()
		}
	}()
	if *repeat > 0 {
		go func() {
			if err := client.Repeat(ctx, *repeat); err != nil {
				log.Error().Err(err).Msg("command repeat stopped")
			}
		}()
	}

	log.Info().Str("iface", *iface).Str("device", *device).Msg("connected")
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Error().Err(err).Msg("reading input")
		}
		close(lines)
	}()

	con := &console{client: client, out: os.Stdout}
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			args, err := shlex.Split(strings.TrimSpace(line))
			if err != nil {
				log.Error().Err(err).Msg("parse")
				continue
			}
			quit, err := con.execute(ctx, args)
			if err != nil {
				log.Error().Err(err).Msg(args[0])
			}
			if quit {
				fmt.Println("Goodbye!")
				return
			}
		}
	}
}
