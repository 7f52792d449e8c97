// Command osc-parser splits one multi-value OSC message into one
// single-value message per argument.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"avaneesh/osc-relay/pkg/config"
	"avaneesh/osc-relay/pkg/relay"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.ParseParserArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "osc-parser: %v\n", err)
		return 1
	}

	log := relay.NewLogger("osc-parser", cfg.LogLevel())

	r, err := relay.NewParser(cfg, log)
	if err != nil {
		log.Error("Failed to start: %v", err)
		return 1
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Listening on %s (%s) for %s, forwarding %s<n> to %s",
		cfg.Listen, cfg.Transport, cfg.ListenAddress, cfg.OutputPrefix, cfg.Target)

	if err := r.Run(ctx); err != nil {
		log.Error("Relay stopped: %v", err)
		return 1
	}

	listenStats, targetStats := r.TransportStatistics()
	log.Info("Shutting down: %s", r)
	log.Info("Transport: %d bytes in (%d read errors), %d bytes out (%d write errors)",
		listenStats.BytesReceived, listenStats.ReadErrors, targetStats.BytesSent, targetStats.WriteErrors)
	return 0
}
