package config

import (
	"flag"
	"io"

	"avaneesh/osc-relay/pkg/channel"
)

// registerCommon binds the shared flags onto fs
func registerCommon(fs *flag.FlagSet, c *Common, transport *string) {
	fs.StringVar(&c.Listen.Host, "listen-host", c.Listen.Host, "Host/IP to bind for incoming OSC messages")
	fs.IntVar(&c.Listen.Port, "listen-port", c.Listen.Port, "Port to bind for incoming OSC messages")
	fs.StringVar(&c.Target.Host, "target-host", c.Target.Host, "Host/IP to forward OSC messages to")
	fs.IntVar(&c.Target.Port, "target-port", c.Target.Port, "Port to forward OSC messages to")
	fs.StringVar(transport, "transport", string(c.Transport), "Transport for both ends: udp, tcp or quic")
	fs.BoolVar(&c.Quiet, "quiet", false, "Suppress per-message logging")
	fs.BoolVar(&c.Debug, "debug", false, "Log slot bookkeeping and ignored messages")
}

// ParseParserArgs parses osc-parser arguments (without the program name).
// Usage and errors are written to output.
func ParseParserArgs(args []string, output io.Writer) (ParserConfig, error) {
	cfg := DefaultParserConfig()

	fs := flag.NewFlagSet("osc-parser", flag.ContinueOnError)
	fs.SetOutput(output)
	var transport string
	registerCommon(fs, &cfg.Common, &transport)
	fs.StringVar(&cfg.ListenAddress, "listen-address", cfg.ListenAddress, "OSC address expected from the producer")
	fs.StringVar(&cfg.OutputPrefix, "output-prefix", cfg.OutputPrefix,
		"Prefix used when emitting split messages; the 1-based value index is appended")

	if err := fs.Parse(args); err != nil {
		return ParserConfig{}, err
	}
	cfg.Transport = channel.Kind(transport)

	if err := cfg.Validate(); err != nil {
		return ParserConfig{}, err
	}
	return cfg, nil
}

// ParseReassemblerArgs parses osc-reassembler arguments (without the program name).
// Usage and errors are written to output.
func ParseReassemblerArgs(args []string, output io.Writer) (ReassemblerConfig, error) {
	cfg := DefaultReassemblerConfig()

	fs := flag.NewFlagSet("osc-reassembler", flag.ContinueOnError)
	fs.SetOutput(output)
	var transport string
	registerCommon(fs, &cfg.Common, &transport)
	fs.StringVar(&cfg.InputPrefix, "input-prefix", cfg.InputPrefix, "Prefix of the OSC addresses that will be reassembled")
	fs.StringVar(&cfg.OutputAddress, "output-address", cfg.OutputAddress, "OSC address used when emitting the aggregated message")
	fs.IntVar(&cfg.ValueCount, "value-count", cfg.ValueCount, "Number of sequential inputs to collect before emitting")

	if err := fs.Parse(args); err != nil {
		return ReassemblerConfig{}, err
	}
	cfg.Transport = channel.Kind(transport)

	if err := cfg.Validate(); err != nil {
		return ReassemblerConfig{}, err
	}
	return cfg, nil
}
