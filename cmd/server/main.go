// Command server runs the chat server: a TCP listener speaking the
// newline-framed JSON protocol, an optional WebSocket gateway, and the
// heartbeat keeping idle clients warm.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ircchat/internal/server"
)

func main() {
	var (
		addr      = flag.String("addr", ":8000", "TCP listen address")
		wsAddr    = flag.String("ws", "", "optional WebSocket gateway address, e.g. :8080")
		heartbeat = flag.Duration("heartbeat", server.DefaultHeartbeat, "heartbeat broadcast interval")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] [port]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// A positional port mirrors the client's address argument.
	if arg := flag.Arg(0); arg != "" {
		if strings.Contains(arg, ":") {
			*addr = arg
		} else {
			*addr = ":" + arg
		}
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	srv := server.New(logger, server.WithHeartbeat(*heartbeat))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info().Msg("stop signal received")
		srv.Shutdown()
	}()

	if *wsAddr != "" {
		go func() {
			if err := srv.StartGateway(*wsAddr); err != nil {
				logger.Error().Err(err).Msg("websocket gateway failed")
			}
		}()
	}

	if err := srv.Start(*addr); err != nil {
		logger.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}
