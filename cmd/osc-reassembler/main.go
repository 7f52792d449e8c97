// Command osc-reassembler collects indexed single-value OSC messages and
// re-emits them as one multi-value message once every index has been seen.
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
	cfg, err := config.ParseReassemblerArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "osc-reassembler: %v\n", err)
		return 1
	}

	log := relay.NewLogger("osc-reassembler", cfg.LogLevel())

	r, err := relay.NewReassembler(cfg, log)
	if err != nil {
		log.Error("Failed to start: %v", err)
		return 1
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Listening on %s (%s) for %s1..%s%d, forwarding %s to %s",
		cfg.Listen, cfg.Transport, cfg.InputPrefix, cfg.InputPrefix, cfg.ValueCount,
		cfg.OutputAddress, cfg.Target)

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
