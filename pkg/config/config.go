// Package config holds the immutable process configuration of the
// osc-parser and osc-reassembler tools and parses their command lines.
package config

import (
	"fmt"
	"net"
	"strconv"

	"avaneesh/osc-relay/pkg/channel"
	"avaneesh/osc-relay/pkg/internal/logger"
)

// Endpoint is a host and port pair
type Endpoint struct {
	Host string
	Port int
}

// String returns host:port
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Common holds the settings both tools share
type Common struct {
	Listen    Endpoint
	Target    Endpoint
	Transport channel.Kind
	Quiet     bool // Suppress per-message logging
	Debug     bool // Log slot bookkeeping and ignored messages
}

// LogLevel derives the logger level from the verbosity flags
func (c Common) LogLevel() logger.Level {
	switch {
	case c.Quiet:
		return logger.LevelWarn
	case c.Debug:
		return logger.LevelDebug
	default:
		return logger.LevelInfo
	}
}

func (c Common) validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen port %d out of range 0..65535", c.Listen.Port)
	}
	if c.Target.Port < 1 || c.Target.Port > 65535 {
		return fmt.Errorf("target port %d out of range 1..65535", c.Target.Port)
	}
	if c.Target.Host == "" {
		return fmt.Errorf("target host is required")
	}
	if _, err := channel.ParseKind(string(c.Transport)); err != nil {
		return err
	}
	return nil
}

// ParserConfig configures osc-parser
type ParserConfig struct {
	Common
	ListenAddress string // Exact address of the multi-value input
	OutputPrefix  string // Prefix of the split outputs; the 1-based index is appended
}

// DefaultParserConfig returns the parser defaults
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Common: Common{
			Listen:    Endpoint{Host: "0.0.0.0", Port: 12000},
			Target:    Endpoint{Host: "127.0.0.1", Port: 12001},
			Transport: channel.KindUDP,
		},
		ListenAddress: "/wek/outputs",
		OutputPrefix:  "/parsed/output-",
	}
}

// Validate checks the parser configuration
func (c ParserConfig) Validate() error {
	if err := c.Common.validate(); err != nil {
		return err
	}
	if c.ListenAddress == "" || c.ListenAddress[0] != '/' {
		return fmt.Errorf("listen address %q must start with '/'", c.ListenAddress)
	}
	if c.OutputPrefix == "" || c.OutputPrefix[0] != '/' {
		return fmt.Errorf("output prefix %q must start with '/'", c.OutputPrefix)
	}
	return nil
}

// ReassemblerConfig configures osc-reassembler
type ReassemblerConfig struct {
	Common
	InputPrefix   string // Prefix of the addresses to collect
	OutputAddress string // Address of the aggregate message
	ValueCount    int    // Number of indexes to collect before emitting
}

// DefaultReassemblerConfig returns the reassembler defaults
func DefaultReassemblerConfig() ReassemblerConfig {
	return ReassemblerConfig{
		Common: Common{
			Listen:    Endpoint{Host: "0.0.0.0", Port: 12001},
			Target:    Endpoint{Host: "127.0.0.1", Port: 12000},
			Transport: channel.KindUDP,
		},
		InputPrefix:   "/parsed/output-",
		OutputAddress: "/wek/outputs",
		ValueCount:    5,
	}
}

// Validate checks the reassembler configuration
func (c ReassemblerConfig) Validate() error {
	if err := c.Common.validate(); err != nil {
		return err
	}
	if c.ValueCount < 1 {
		return fmt.Errorf("--value-count must be greater than 0")
	}
	if c.InputPrefix == "" || c.InputPrefix[0] != '/' {
		return fmt.Errorf("input prefix %q must start with '/'", c.InputPrefix)
	}
	if c.OutputAddress == "" || c.OutputAddress[0] != '/' {
		return fmt.Errorf("output address %q must start with '/'", c.OutputAddress)
	}
	return nil
}
