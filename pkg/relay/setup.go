package relay

import (
	"fmt"

	"avaneesh/osc-relay/pkg/channel"
	"avaneesh/osc-relay/pkg/config"
	"avaneesh/osc-relay/pkg/fanout"
	"avaneesh/osc-relay/pkg/internal/logger"
	"avaneesh/osc-relay/pkg/osc"
	"avaneesh/osc-relay/pkg/reassembler"
)

// SplitterHandler adapts a Splitter to the dispatcher
func SplitterHandler(s *fanout.Splitter) channel.Handler {
	return channel.HandlerFunc(func(msg *osc.Message) ([]*osc.Message, error) {
		return s.Handle(msg), nil
	})
}

// ReassemblerHandler adapts a Reassembler to the dispatcher
func ReassemblerHandler(r *reassembler.Reassembler) channel.Handler {
	return channel.HandlerFunc(func(msg *osc.Message) ([]*osc.Message, error) {
		out, err := r.Handle(msg)
		if err != nil || out == nil {
			return nil, err
		}
		return []*osc.Message{out}, nil
	})
}

// openChannels binds the listen side and prepares the target side
func openChannels(c config.Common) (listen, target channel.PhysicalChannel, err error) {
	listen, err = channel.Open(c.Transport, c.Listen.String(), true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open listen channel: %w", err)
	}

	target, err = channel.Open(c.Transport, c.Target.String(), false)
	if err != nil {
		listen.Close()
		return nil, nil, fmt.Errorf("failed to open target channel: %w", err)
	}

	return listen, target, nil
}

// NewParser builds the splitting relay described by cfg
func NewParser(cfg config.ParserConfig, log logger.Logger) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dispatcher := channel.NewDispatcher()
	splitter := fanout.New(cfg.OutputPrefix, log)
	if err := dispatcher.Map(cfg.ListenAddress, SplitterHandler(splitter)); err != nil {
		return nil, err
	}

	listen, target, err := openChannels(cfg.Common)
	if err != nil {
		return nil, err
	}
	return New("", listen, target, dispatcher, log), nil
}

// NewReassembler builds the reassembling relay described by cfg
func NewReassembler(cfg config.ReassemblerConfig, log logger.Logger) (*Relay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r, err := reassembler.New(reassembler.Config{
		InputPrefix:   cfg.InputPrefix,
		OutputAddress: cfg.OutputAddress,
		ValueCount:    cfg.ValueCount,
	}, log)
	if err != nil {
		return nil, err
	}

	dispatcher := channel.NewDispatcher()
	if err := dispatcher.MapPrefix(cfg.InputPrefix, ReassemblerHandler(r)); err != nil {
		return nil, err
	}

	listen, target, err := openChannels(cfg.Common)
	if err != nil {
		return nil, err
	}
	return New("", listen, target, dispatcher, log), nil
}
