// Package fanout splits one multi-value OSC message into single-value
// messages addressed by index.
package fanout

import (
	"avaneesh/osc-relay/pkg/address"
	"avaneesh/osc-relay/pkg/internal/logger"
	"avaneesh/osc-relay/pkg/osc"
)

// Splitter fans out each argument of a message to its own address.
// It holds no state between messages.
type Splitter struct {
	outputPrefix string
	logger       logger.Logger
}

// New creates a splitter emitting <outputPrefix><n> for the n-th value
func New(outputPrefix string, log logger.Logger) *Splitter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Splitter{
		outputPrefix: outputPrefix,
		logger:       log,
	}
}

// Handle returns one message per argument, in argument order.
// A message without arguments produces nothing.
func (s *Splitter) Handle(msg *osc.Message) []*osc.Message {
	if len(msg.Arguments) == 0 {
		s.logger.Warn("Received %s with no payload; skipping", msg.Address)
		return nil
	}

	out := make([]*osc.Message, len(msg.Arguments))
	for i, value := range msg.Arguments {
		out[i] = osc.NewMessage(address.Encode(s.outputPrefix, i), value)
		s.logger.Info("%s -> %s %v", msg.Address, out[i].Address, value)
	}
	return out
}
