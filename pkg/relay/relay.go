// Package relay runs the receive → dispatch → send loop shared by the
// splitter and reassembler processes.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"avaneesh/osc-relay/pkg/address"
	"avaneesh/osc-relay/pkg/channel"
	"avaneesh/osc-relay/pkg/internal/logger"
	"avaneesh/osc-relay/pkg/osc"
	"avaneesh/osc-relay/pkg/reassembler"
)

// Relay reads OSC packets from a listen channel, hands every message to a
// dispatcher and writes whatever comes back to a target channel.
// Messages are processed one at a time in arrival order.
type Relay struct {
	id         string
	listen     channel.PhysicalChannel
	target     channel.PhysicalChannel
	dispatcher *channel.Dispatcher
	stats      *channel.Statistics
	logger     logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// New creates a relay. An empty id is replaced by a random UUID.
func New(id string, listen, target channel.PhysicalChannel, dispatcher *channel.Dispatcher, log logger.Logger) *Relay {
	if id == "" {
		id = uuid.NewString()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Relay{
		id:         id,
		listen:     listen,
		target:     target,
		dispatcher: dispatcher,
		stats:      channel.NewStatistics(),
		logger:     log,
	}
}

// ID returns the relay ID
func (r *Relay) ID() string {
	return r.id
}

// Run processes packets until ctx is cancelled or the listen channel is
// closed. Per-message failures are logged and never stop the loop.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Debug("Relay %s loop started", r.id)
	defer r.logger.Debug("Relay %s loop stopped", r.id)

	for {
		data, err := r.listen.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, channel.ErrChannelClosed) {
				return err
			}
			r.logger.Error("Relay %s read error: %v", r.id, err)
			continue
		}
		r.stats.PacketRx()

		messages, err := osc.ParsePacket(data)
		if err != nil {
			r.stats.DecodeError()
			r.logger.Warn("Relay %s dropping undecodable packet (%d bytes): %v", r.id, len(data), err)
			continue
		}

		for _, msg := range messages {
			r.stats.MessageRx()
			r.handle(ctx, msg)
		}
	}
}

// handle dispatches one message and sends the results
func (r *Relay) handle(ctx context.Context, msg *osc.Message) {
	out, err := r.dispatcher.Dispatch(msg)
	if err != nil {
		switch {
		case errors.Is(err, channel.ErrNoHandler), errors.Is(err, address.ErrAddressMismatch):
			r.stats.Dropped()
			r.logger.Debug("Relay %s ignoring %s", r.id, msg.Address)
		case errors.Is(err, address.ErrAddressMalformed),
			errors.Is(err, reassembler.ErrIndexOutOfRange),
			errors.Is(err, reassembler.ErrNoPayload):
			r.stats.Rejected()
			r.logger.Warn("%v", err)
		default:
			r.stats.Rejected()
			r.logger.Error("Relay %s handler error for %s: %v", r.id, msg.Address, err)
		}
		return
	}

	for _, m := range out {
		if err := r.send(ctx, m); err != nil {
			r.stats.WriteError()
			r.logger.Error("Relay %s failed to send %s: %v", r.id, m.Address, err)
			continue
		}
		r.stats.MessageTx()
	}
}

// send encodes and writes one message. It uses a context detached from
// cancellation so a message that was accepted is written in full.
func (r *Relay) send(ctx context.Context, msg *osc.Message) error {
	data, err := msg.Serialize()
	if err != nil {
		return err
	}
	return r.target.Write(context.WithoutCancel(ctx), data)
}

// Close releases both channels. Safe to call more than once.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("Relay %s closing", r.id)
		listenErr := r.listen.Close()
		targetErr := r.target.Close()
		if listenErr != nil || targetErr != nil {
			r.closeErr = fmt.Errorf("close relay %s: listen: %v, target: %v", r.id, listenErr, targetErr)
		}
	})
	return r.closeErr
}

// Statistics returns a snapshot of the relay counters
func (r *Relay) Statistics() channel.Snapshot {
	return r.stats.Snapshot()
}

// TransportStatistics returns listen and target transport counters
func (r *Relay) TransportStatistics() (listen, target channel.TransportStats) {
	return r.listen.Statistics(), r.target.Statistics()
}

// String returns string representation of the relay
func (r *Relay) String() string {
	s := r.stats.Snapshot()
	return fmt.Sprintf("Relay{ID=%s, Rx=%d, Tx=%d, Dropped=%d, Rejected=%d, DecodeErrors=%d, WriteErrors=%d}",
		r.id, s.MessagesRx, s.MessagesTx, s.Dropped, s.Rejected, s.DecodeErrors, s.WriteErrors)
}
