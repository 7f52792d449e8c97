// Package reassembler collects single-value OSC messages addressed as
// <prefix><n> into a fixed table and emits the whole table as one message.
//
// The table starts with every slot unset. Each valid update overwrites one
// slot. Once every slot has been set at least once the reassembler is
// complete, and from then on every valid update emits the full table using
// the latest value held for each slot. Completeness never resets.
package reassembler

import (
	"fmt"

	"github.com/pkg/errors"

	"avaneesh/osc-relay/pkg/address"
	"avaneesh/osc-relay/pkg/internal/logger"
	"avaneesh/osc-relay/pkg/osc"
)

var (
	ErrIndexOutOfRange = errors.New("index outside configured range")
	ErrNoPayload       = errors.New("message has no payload")
)

// Config configures a reassembler
type Config struct {
	InputPrefix   string // Prefix of the addresses to collect
	OutputAddress string // Address of the emitted aggregate message
	ValueCount    int    // Number of slots, fixed for the reassembler's life
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.ValueCount < 1 {
		return fmt.Errorf("value count must be greater than 0, got %d", c.ValueCount)
	}
	if c.InputPrefix == "" {
		return fmt.Errorf("input prefix is required")
	}
	if c.OutputAddress == "" {
		return fmt.Errorf("output address is required")
	}
	return nil
}

// Reassembler accumulates indexed values. It is not safe for concurrent
// use; a single event loop owns it.
type Reassembler struct {
	config Config
	logger logger.Logger

	values   []interface{}
	set      []bool
	numSet   int
	complete bool
}

// New creates a reassembler with every slot unset
func New(config Config, log logger.Logger) (*Reassembler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Reassembler{
		config: config,
		logger: log,
		values: make([]interface{}, config.ValueCount),
		set:    make([]bool, config.ValueCount),
	}, nil
}

// Handle applies one message to the table. It returns the aggregate message
// when the table is complete after the update, and nil while slots are still
// missing. On error the table is left unchanged.
//
// address.ErrAddressMismatch is returned for messages addressed elsewhere;
// callers are expected to drop those silently.
func (r *Reassembler) Handle(msg *osc.Message) (*osc.Message, error) {
	index, err := address.Decode(msg.Address, r.config.InputPrefix)
	if errors.Is(err, address.ErrIndexOverflow) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "index %s is outside 1..%d",
			msg.Address[len(r.config.InputPrefix):], r.config.ValueCount)
	}
	if err != nil {
		return nil, err
	}

	if len(msg.Arguments) == 0 {
		return nil, errors.Wrapf(ErrNoPayload, "%s", msg.Address)
	}

	if index < 0 || index >= r.config.ValueCount {
		return nil, errors.Wrapf(ErrIndexOutOfRange,
			"index %d is outside 1..%d", index+1, r.config.ValueCount)
	}

	if len(msg.Arguments) > 1 {
		r.logger.Warn("%s contained %d values; only the first will be used",
			msg.Address, len(msg.Arguments))
	}

	r.store(index, msg.Arguments[0])

	if !r.complete {
		r.logger.Debug("Waiting for indexes %v before emitting aggregated message", r.Missing())
		return nil, nil
	}

	out := osc.NewMessage(r.config.OutputAddress, r.Values()...)
	r.logger.Info("%s[1..%d] (last values) -> %s", r.config.InputPrefix, r.config.ValueCount, out)
	return out, nil
}

// store overwrites a slot and updates completeness
func (r *Reassembler) store(index int, value interface{}) {
	if !r.set[index] {
		r.set[index] = true
		r.numSet++
	}
	r.values[index] = value

	if r.numSet == len(r.set) {
		r.complete = true
	}
}

// Complete reports whether every slot has been set at least once
func (r *Reassembler) Complete() bool {
	return r.complete
}

// Len returns the number of slots
func (r *Reassembler) Len() int {
	return len(r.values)
}

// Values returns a copy of the table; unset slots are nil
func (r *Reassembler) Values() []interface{} {
	values := make([]interface{}, len(r.values))
	copy(values, r.values)
	return values
}

// Missing returns the 1-based wire indexes that have never been set
func (r *Reassembler) Missing() []int {
	var missing []int
	for i, ok := range r.set {
		if !ok {
			missing = append(missing, i+1)
		}
	}
	return missing
}
